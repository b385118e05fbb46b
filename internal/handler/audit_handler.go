package handler

import (
	"net/http"

	"github.com/Sayyed-Ali/MediSys/internal/middleware"
	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/service"
	"github.com/Sayyed-Ali/MediSys/pkg/pagination"
	"github.com/Sayyed-Ali/MediSys/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Auth
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Auth) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.auth.RequireRole(model.RoleAdmin))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records with the acting user resolved
// @Summary      Get audit logs
// @Description  Newest first. Invoice imports carry their row summary.
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        action  query     string  false  "Only entries with this action, e.g. invoice_import"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), c.Query("action"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(logs, total)))
}
