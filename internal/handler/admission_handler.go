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

type AdmissionHandler struct {
	admissionService service.AdmissionService
	auth             *middleware.Auth
}

func NewAdmissionHandler(admissionService service.AdmissionService, auth *middleware.Auth) *AdmissionHandler {
	return &AdmissionHandler{admissionService: admissionService, auth: auth}
}

func (h *AdmissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	ward := h.auth.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleNurse)

	admissions := router.Group("/api/admissions")
	{
		admissions.POST("", ward, h.Admit)
		admissions.GET("", h.auth.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleNurse, model.RoleDoctor), h.ListAdmissions)
		admissions.PATCH("/:id/room", ward, h.ChangeRoom)
		admissions.PATCH("/:id/discharge", ward, h.Discharge)
	}
}

// Admit
// @Summary      Admit patient
// @Tags         admissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateAdmissionRequest  true  "Admission"
// @Success      201      {object}  response.Response{data=model.Admission}
// @Failure      400      {object}  response.Response
// @Router       /api/admissions [post]
func (h *AdmissionHandler) Admit(c *gin.Context) {
	var req service.CreateAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	admission, err := h.admissionService.Admit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, admission))
}

// ListAdmissions
// @Summary      List admissions
// @Tags         admissions
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        status  query     string  false  "Admitted or Discharged"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Failure      400     {object}  response.Response
// @Router       /api/admissions [get]
func (h *AdmissionHandler) ListAdmissions(c *gin.Context) {
	p := pagination.Parse(c)

	admissions, total, err := h.admissionService.ListAdmissions(c.Request.Context(), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(admissions, total)))
}

// ChangeRoom moves an admitted patient to another room type
// @Summary      Change room
// @Tags         admissions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Admission ID"
// @Param        payload  body      service.ChangeRoomRequest  true  "Room"
// @Success      200      {object}  response.Response{data=model.Admission}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/admissions/{id}/room [patch]
func (h *AdmissionHandler) ChangeRoom(c *gin.Context) {
	var req service.ChangeRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	admission, err := h.admissionService.ChangeRoom(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, admission))
}

// Discharge
// @Summary      Discharge patient
// @Tags         admissions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Admission ID"
// @Success      200  {object}  response.Response{data=model.Admission}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/admissions/{id}/discharge [patch]
func (h *AdmissionHandler) Discharge(c *gin.Context) {
	admission, err := h.admissionService.Discharge(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, admission))
}
