package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Sayyed-Ali/MediSys/internal/middleware"
	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/service"
	"github.com/Sayyed-Ali/MediSys/pkg/pagination"
	"github.com/Sayyed-Ali/MediSys/pkg/response"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billingService service.BillingService
	auth           *middleware.Auth
}

func NewBillingHandler(billingService service.BillingService, auth *middleware.Auth) *BillingHandler {
	return &BillingHandler{billingService: billingService, auth: auth}
}

func (h *BillingHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := h.auth.RequireRole(model.RoleAdmin, model.RoleStaff)

	billing := router.Group("/api/billing")
	{
		billing.POST("", staff, h.CreateBilling)
		billing.GET("", staff, h.GetBillings)
		billing.GET("/:id", h.auth.Authenticated(), h.GetBilling)
		billing.PUT("/:id/status", staff, h.UpdateStatus)
	}
}

// CreateBilling bills a patient and draws the medicines from stock
// @Summary      Create invoice
// @Description  Accepts line items in several client shapes (lineItems or items, qty/quantity, rate/price).
// @Description  Stock is consumed oldest expiry first; shortfalls are reported as warnings.
// @Tags         billing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      object  true  "Billing payload"
// @Success      201      {object}  service.CreateBillingResult
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/billing [post]
func (h *BillingHandler) CreateBilling(c *gin.Context) {
	// numbers stay json.Number so amounts are parsed as decimals, never float64
	var payload map[string]interface{}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		badPayload(c, err)
		return
	}

	result, err := h.billingService.CreateBilling(c.Request.Context(), c.GetString(middleware.CtxUserID), payload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetBillings lists invoices newest first
// @Summary      List invoices
// @Tags         billing
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        status  query     string  false  "Unpaid, Paid, Cancelled or Refunded"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Failure      400     {object}  response.Response
// @Failure      500     {object}  response.Response
// @Router       /api/billing [get]
func (h *BillingHandler) GetBillings(c *gin.Context) {
	p := pagination.Parse(c)

	bills, total, err := h.billingService.ListBillings(c.Request.Context(), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(bills, total)))
}

// GetBilling
// @Summary      Get invoice
// @Tags         billing
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Billing ID"
// @Success      200  {object}  response.Response{data=model.Billing}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/billing/{id} [get]
func (h *BillingHandler) GetBilling(c *gin.Context) {
	bill, err := h.billingService.GetBilling(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, bill))
}

// UpdateStatus marks an invoice paid, cancelled or refunded
// @Summary      Update invoice status
// @Tags         billing
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                              true  "Billing ID"
// @Param        payload  body      service.UpdateBillingStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=model.Billing}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/billing/{id}/status [put]
func (h *BillingHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateBillingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	bill, err := h.billingService.UpdateStatus(c.Request.Context(), c.GetString(middleware.CtxUserID), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, bill))
}
