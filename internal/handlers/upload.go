package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"estate-video-backend/internal/middleware"
	"estate-video-backend/internal/models"
	"estate-video-backend/internal/pipeline"
	"estate-video-backend/internal/store"
)

// invoiceAmount is the flat per-order charge until per-package pricing
// lands with the payment provider integration.
const invoiceAmount = 100

type UploadHandler struct {
	store        *store.Store
	orchestrator *pipeline.Orchestrator
	uploadsDir   string
}

func NewUploadHandler(st *store.Store, orch *pipeline.Orchestrator, uploadsDir string) *UploadHandler {
	return &UploadHandler{store: st, orchestrator: orch, uploadsDir: uploadsDir}
}

// Upload accepts a package tier, optional add-ons, and the order's
// photos in one multipart request. All validation happens before any
// row or file is written, so a rejected request leaves no state behind.
// Generation runs in the background; the response returns as soon as the
// order is recorded.
func (h *UploadHandler) Upload(c *gin.Context) {
	pkg := c.PostForm("package")
	addOnsRaw := c.PostForm("add_ons")

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid multipart form", Message: err.Error()})
		return
	}
	files := form.File["files"]

	if err := models.ValidatePackage(pkg, len(files)); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid package selection", Message: err.Error()})
		return
	}

	var addOns string
	if addOnsRaw != "" {
		var list []string
		if err := json.Unmarshal([]byte(addOnsRaw), &list); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid add_ons format", Message: err.Error()})
			return
		}
		addOns = strings.Join(list, ",")
	}

	userID, _ := middleware.UserID(c)

	order := &models.Order{Package: pkg}
	if userID != 0 {
		order.UserID.Int64, order.UserID.Valid = userID, true
	}
	if addOns != "" {
		order.AddOns.String, order.AddOns.Valid = addOns, true
	}
	if err := h.store.CreateOrder(order); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create order", Message: err.Error()})
		return
	}

	if err := os.MkdirAll(h.uploadsDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to prepare uploads directory", Message: err.Error()})
		return
	}

	var (
		saved     []pipeline.UploadedFile
		summaries []models.ImageSummary
	)
	for _, fh := range files {
		storedName := uuid.New().String() + filepath.Ext(fh.Filename)

		src, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to read uploaded file", Message: err.Error()})
			return
		}
		dst, err := os.Create(filepath.Join(h.uploadsDir, storedName))
		if err != nil {
			src.Close()
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to save uploaded file", Message: err.Error()})
			return
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to save uploaded file", Message: err.Error()})
			return
		}

		saved = append(saved, pipeline.UploadedFile{OriginalName: fh.Filename, StoredName: storedName})
		summaries = append(summaries, models.ImageSummary{Filename: fh.Filename, Size: fh.Size})
	}

	var invoiceInfo *models.InvoiceInfo
	if userID != 0 {
		invoice := &models.Invoice{OrderID: order.ID, UserID: userID, Amount: invoiceAmount}
		if err := h.store.CreateInvoice(invoice); err != nil {
			log.WithField("order_id", order.ID).Errorf("failed to create invoice: %v", err)
		} else {
			invoiceInfo = &models.InvoiceInfo{
				ID:      invoice.ID,
				OrderID: invoice.OrderID,
				Amount:  invoice.Amount,
				Status:  "unpaid",
				Date:    invoice.CreatedAt,
			}
		}
	}

	go h.orchestrator.ProcessOrder(context.Background(), order, saved)

	c.JSON(http.StatusOK, models.UploadResponse{
		OrderID: order.ID,
		Package: order.Package,
		AddOns:  addOns,
		Status:  "submitted",
		Images:  summaries,
		Invoice: invoiceInfo,
	})
}
