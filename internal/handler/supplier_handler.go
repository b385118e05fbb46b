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

type SupplierHandler struct {
	supplierService service.SupplierService
	auth            *middleware.Auth
}

func NewSupplierHandler(supplierService service.SupplierService, auth *middleware.Auth) *SupplierHandler {
	return &SupplierHandler{supplierService: supplierService, auth: auth}
}

func (h *SupplierHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := h.auth.RequireRole(model.RoleAdmin, model.RoleStaff)

	suppliers := router.Group("/api/suppliers")
	{
		suppliers.GET("", staff, h.ListSuppliers)
		suppliers.GET("/:id", staff, h.GetSupplier)
		suppliers.POST("", staff, h.CreateSupplier)
		suppliers.PUT("/:id", staff, h.UpdateSupplier)
		suppliers.DELETE("/:id", h.auth.RequireRole(model.RoleAdmin), h.DeleteSupplier)
	}
}

// ListSuppliers returns paginated suppliers with an optional name search
// @Summary      List suppliers
// @Tags         suppliers
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        search  query     string  false  "Search by name"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Router       /api/suppliers [get]
func (h *SupplierHandler) ListSuppliers(c *gin.Context) {
	p := pagination.Parse(c)

	suppliers, total, err := h.supplierService.ListSuppliers(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(suppliers, total)))
}

// GetSupplier
// @Summary      Get supplier
// @Tags         suppliers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Supplier ID"
// @Success      200  {object}  response.Response{data=model.Supplier}
// @Failure      404  {object}  response.Response
// @Router       /api/suppliers/{id} [get]
func (h *SupplierHandler) GetSupplier(c *gin.Context) {
	supplier, err := h.supplierService.GetSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, supplier))
}

// CreateSupplier
// @Summary      Create supplier
// @Tags         suppliers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SupplierRequest  true  "Supplier"
// @Success      201      {object}  response.Response{data=model.Supplier}
// @Failure      400      {object}  response.Response
// @Router       /api/suppliers [post]
func (h *SupplierHandler) CreateSupplier(c *gin.Context) {
	var req service.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	supplier, err := h.supplierService.CreateSupplier(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, supplier))
}

// UpdateSupplier replaces a supplier's details
// @Summary      Update supplier
// @Tags         suppliers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "Supplier ID"
// @Param        payload  body  service.SupplierRequest  true  "Supplier"
// @Success      200  {object}  response.Response{data=model.Supplier}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/suppliers/{id} [put]
func (h *SupplierHandler) UpdateSupplier(c *gin.Context) {
	var req service.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	supplier, err := h.supplierService.UpdateSupplier(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, supplier))
}

// DeleteSupplier deletes a supplier (soft delete)
// @Summary      Delete supplier
// @Tags         suppliers
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Supplier ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/suppliers/{id} [delete]
func (h *SupplierHandler) DeleteSupplier(c *gin.Context) {
	if err := h.supplierService.DeleteSupplier(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithMessage(http.StatusOK, "Supplier removed", nil))
}
