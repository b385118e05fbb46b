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

type MedicineHandler struct {
	medicineService service.MedicineService
	auth            *middleware.Auth
}

func NewMedicineHandler(medicineService service.MedicineService, auth *middleware.Auth) *MedicineHandler {
	return &MedicineHandler{medicineService: medicineService, auth: auth}
}

func (h *MedicineHandler) RegisterRoutes(router *gin.RouterGroup) {
	clinical := h.auth.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleDoctor, model.RoleNurse)

	medicines := router.Group("/api/medicines")
	{
		medicines.GET("", clinical, h.ListMedicines)
		medicines.GET("/:id", clinical, h.GetMedicine)
		medicines.POST("", h.auth.RequireRole(model.RoleAdmin, model.RoleStaff), h.CreateMedicine)
	}
}

// ListMedicines searches the master list
// @Summary      List medicines
// @Tags         medicines
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Case-insensitive name search"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Failure      500     {object}  response.Response
// @Router       /api/medicines [get]
func (h *MedicineHandler) ListMedicines(c *gin.Context) {
	p := pagination.Parse(c)

	meds, total, err := h.medicineService.ListMedicines(c.Request.Context(), p.Page, p.Limit, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(meds, total)))
}

// GetMedicine
// @Summary      Get medicine
// @Tags         medicines
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Medicine ID"
// @Success      200  {object}  response.Response{data=model.Medicine}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/medicines/{id} [get]
func (h *MedicineHandler) GetMedicine(c *gin.Context) {
	med, err := h.medicineService.GetMedicine(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, med))
}

// CreateMedicine adds a medicine to the master list
// @Summary      Create medicine
// @Tags         medicines
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateMedicineRequest  true  "Medicine"
// @Success      201      {object}  response.Response{data=model.Medicine}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/medicines [post]
func (h *MedicineHandler) CreateMedicine(c *gin.Context) {
	var req service.CreateMedicineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	med, err := h.medicineService.CreateMedicine(c.Request.Context(), c.GetString(middleware.CtxUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, med))
}
