package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Sayyed-Ali/MediSys/internal/middleware"
	"github.com/Sayyed-Ali/MediSys/internal/model"
	"github.com/Sayyed-Ali/MediSys/internal/service"
	"github.com/Sayyed-Ali/MediSys/pkg/pagination"
	"github.com/Sayyed-Ali/MediSys/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxImageSize bounds an OCR intake upload
const MaxImageSize = 10 << 20

type InventoryHandler struct {
	inventoryService service.InventoryService
	auth             *middleware.Auth
}

func NewInventoryHandler(inventoryService service.InventoryService, auth *middleware.Auth) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, auth: auth}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/inventory")
	{
		inventory.GET("", h.auth.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleNurse), h.GetBatches)
		inventory.POST("", h.auth.RequireRole(model.RoleAdmin, model.RoleStaff), h.CreateBatch)
		inventory.PUT("/:id", h.auth.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleNurse), h.UpdateQuantity)
		inventory.GET("/:id/transactions", h.auth.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleNurse), h.GetTransactions)
		inventory.POST("/ocr-intake", h.auth.RequireRole(model.RoleAdmin, model.RoleStaff), h.OCRIntake)
	}
}

// GetBatches handles retrieving paginated inventory batches
// @Summary      List inventory
// @Description  Retrieves a paginated list of stock batches with their medicine and supplier
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Param        medicineId  query     string  false  "Only batches of this medicine"
// @Success      200  {object}  response.Response{data=pagination.Page}
// @Failure      400  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/inventory [get]
func (h *InventoryHandler) GetBatches(c *gin.Context) {
	p := pagination.Parse(c)

	batches, total, err := h.inventoryService.ListBatches(c.Request.Context(), p.Page, p.Limit, c.Query("medicineId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(batches, total)))
}

// CreateBatch adds a stock batch by hand
// @Summary      Create batch
// @Description  Creates a new inventory batch and records the stock movement
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateBatchRequest  true  "Create Batch Payload"
// @Success      201      {object}  response.Response{data=model.InventoryBatch}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/inventory [post]
func (h *InventoryHandler) CreateBatch(c *gin.Context) {
	var req service.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	batch, err := h.inventoryService.CreateBatch(c.Request.Context(), c.GetString(middleware.CtxUserID), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, batch))
}

// UpdateQuantity sets the counted quantity of a batch
// @Summary      Adjust stock
// @Description  Overwrites the quantity of a batch after a stock count
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Batch ID"
// @Param        payload  body      service.UpdateQuantityRequest  true  "New quantity"
// @Success      200      {object}  response.Response{data=model.InventoryBatch}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/inventory/{id} [put]
func (h *InventoryHandler) UpdateQuantity(c *gin.Context) {
	var req service.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	batch, err := h.inventoryService.UpdateQuantity(c.Request.Context(), c.GetString(middleware.CtxUserID), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, batch))
}

// GetTransactions returns the stock history of one batch
// @Summary      Batch history
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Batch ID"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Page}
// @Failure      400    {object}  response.Response
// @Failure      500    {object}  response.Response
// @Router       /api/inventory/{id}/transactions [get]
func (h *InventoryHandler) GetTransactions(c *gin.Context) {
	p := pagination.Parse(c)

	txs, total, err := h.inventoryService.ListTransactions(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(txs, total)))
}

// OCRIntake restocks from a photo of the package label
// @Summary      OCR intake
// @Description  Reads batch number and expiry from a label photo and adds the stock
// @Tags         inventory
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        image       formData  file    true   "Label photo"
// @Param        medicineId  formData  string  true   "Medicine ID"
// @Param        quantity    formData  int     false  "Units received (default 50)"
// @Param        supplierId  formData  string  false  "Supplier ID"
// @Success      201  {object}  response.Response{data=service.OCRIntakeResult}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /api/inventory/ocr-intake [post]
func (h *InventoryHandler) OCRIntake(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxImageSize)

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Image file is required"))
		return
	}

	var quantity int
	if raw := strings.TrimSpace(c.PostForm("quantity")); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil || quantity <= 0 {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "quantity must be a positive whole number"))
			return
		}
	}

	file, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	res, err := h.inventoryService.OCRIntake(c.Request.Context(), c.GetString(middleware.CtxUserID), service.OCRIntakeRequest{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		File:        file,
		MedicineID:  c.PostForm("medicineId"),
		Quantity:    quantity,
		SupplierID:  c.PostForm("supplierId"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessWithMessage(http.StatusCreated, res.Msg, res))
}
