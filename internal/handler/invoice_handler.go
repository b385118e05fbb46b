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

// MaxInvoiceSize bounds an uploaded supplier invoice
const MaxInvoiceSize = 20 << 20

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	reviewService  service.ReviewService
	auth           *middleware.Auth
}

func NewInvoiceHandler(invoiceService service.InvoiceService, reviewService service.ReviewService, auth *middleware.Auth) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, reviewService: reviewService, auth: auth}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoice := router.Group("/api/invoice")
	{
		invoice.POST("/upload", h.auth.RequireRole(model.RoleAdmin), h.Upload)

		review := invoice.Group("/review", h.auth.RequireRole(model.RoleAdmin, model.RoleStaff))
		review.GET("/pending", h.GetPendingReviews)
		review.POST("/approve/:id", h.ApproveReview)
		review.POST("/reject/:id", h.RejectReview)
	}
}

// Upload imports a supplier invoice into inventory
// @Summary      Import supplier invoice
// @Description  Parses the uploaded invoice, matches every row to a medicine and restocks.
// @Description  Rows that cannot be matched confidently are queued for manual review.
// @Tags         invoice
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        invoice     formData  file    true   "Invoice PDF"
// @Param        supplierId  formData  string  false  "Supplier ID"
// @Success      200  {object}  service.ImportResult
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /api/invoice/upload [post]
func (h *InvoiceHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxInvoiceSize)

	fh, err := c.FormFile("invoice")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "No file uploaded"))
		return
	}

	file, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	result, err := h.invoiceService.ImportInvoice(c.Request.Context(), service.ImportInvoiceRequest{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		File:        file,
		SupplierID:  c.PostForm("supplierId"),
		UserID:      c.GetString(middleware.CtxUserID),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// the import summary is the body itself; existing clients read msg/autoAdded at the top level
	c.JSON(http.StatusOK, result)
}

// GetPendingReviews lists invoice rows waiting for a human decision
// @Summary      Pending reviews
// @Tags         invoice
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Page}
// @Failure      500    {object}  response.Response
// @Router       /api/invoice/review/pending [get]
func (h *InvoiceHandler) GetPendingReviews(c *gin.Context) {
	p := pagination.Parse(c)

	reviews, total, err := h.reviewService.ListPending(c.Request.Context(), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(reviews, total)))
}

// ApproveReview assigns a medicine to a queued row and restocks
// @Summary      Approve review
// @Tags         invoice
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Review ID"
// @Param        payload  body      service.ApproveReviewRequest  true  "Approval"
// @Success      200      {object}  response.Response{data=service.ReviewDecision}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/invoice/review/approve/{id} [post]
func (h *InvoiceHandler) ApproveReview(c *gin.Context) {
	var req service.ApproveReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	decision, err := h.reviewService.Approve(c.Request.Context(), c.GetString(middleware.CtxUserID), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithMessage(http.StatusOK, "Review approved", decision))
}

// RejectReview closes a queued row without touching stock
// @Summary      Reject review
// @Tags         invoice
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Review ID"
// @Success      200  {object}  response.Response{data=service.ReviewDecision}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/invoice/review/reject/{id} [post]
func (h *InvoiceHandler) RejectReview(c *gin.Context) {
	decision, err := h.reviewService.Reject(c.Request.Context(), c.GetString(middleware.CtxUserID), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithMessage(http.StatusOK, "Review rejected", decision))
}
