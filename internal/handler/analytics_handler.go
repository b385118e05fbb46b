package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Sayyed-Ali/MediSys/internal/middleware"
	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/service"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	auth             *middleware.Auth
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService, auth *middleware.Auth) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, auth: auth}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	clinical := h.auth.RequireRole(model.RoleAdmin, model.RoleDoctor)

	analytics := router.Group("/api/analytics")
	{
		analytics.POST("/demand", h.auth.RequireRole(model.RoleAdmin), h.Demand)
		analytics.POST("/risk", clinical, h.Risk)
		analytics.POST("/disease", clinical, h.Disease)
		analytics.GET("/metadata", h.Metadata)
	}
}

// bindOptionalJSON decodes the body into dst; an empty body leaves dst untouched
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if err := json.NewDecoder(c.Request.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// upstream predictions are relayed verbatim
func relay(c *gin.Context, body json.RawMessage) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Demand
// @Summary      Predict medicine demand
// @Tags         analytics
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MonthRequest  true  "Month as YYYY-MM"
// @Success      200      {object}  object
// @Failure      400      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /api/analytics/demand [post]
func (h *AnalyticsHandler) Demand(c *gin.Context) {
	var req service.MonthRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badPayload(c, err)
		return
	}

	body, err := h.analyticsService.Demand(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	relay(c, body)
}

// Risk
// @Summary      Predict patient risk
// @Tags         analytics
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      object  false  "Patient features"
// @Success      200      {object}  object
// @Failure      502      {object}  response.Response
// @Router       /api/analytics/risk [post]
func (h *AnalyticsHandler) Risk(c *gin.Context) {
	var payload map[string]interface{}
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		badPayload(c, err)
		return
	}

	body, err := h.analyticsService.Risk(c.Request.Context(), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	relay(c, body)
}

// Disease
// @Summary      Predict disease trends
// @Tags         analytics
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MonthRequest  false  "Optional month as YYYY-MM"
// @Success      200      {object}  object
// @Failure      400      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /api/analytics/disease [post]
func (h *AnalyticsHandler) Disease(c *gin.Context) {
	var req service.MonthRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badPayload(c, err)
		return
	}

	body, err := h.analyticsService.Disease(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	relay(c, body)
}

// Metadata reports the analytics service status; it never fails
// @Summary      Analytics status
// @Tags         analytics
// @Produce      json
// @Success      200  {object}  object
// @Router       /api/analytics/metadata [get]
func (h *AnalyticsHandler) Metadata(c *gin.Context) {
	relay(c, h.analyticsService.Metadata(c.Request.Context()))
}
