package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"estate-video-backend/internal/middleware"
	"estate-video-backend/internal/models"
	"estate-video-backend/internal/store"
)

type ClientHandler struct {
	store *store.Store
}

func NewClientHandler(st *store.Store) *ClientHandler {
	return &ClientHandler{store: st}
}

// DownloadCenter lists the client's orders that have at least one
// finished video, newest first. Only the latest iteration per image is
// shown; superseded iterations never appear.
func (h *ClientHandler) DownloadCenter(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	orders, err := h.store.ListOrdersByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load orders", Message: err.Error()})
		return
	}

	downloads := []models.DownloadEntry{}
	for _, order := range orders {
		videos, err := h.store.ListLatestVideosByOrder(order.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load videos", Message: err.Error()})
			return
		}

		var ready []models.DownloadVideo
		for _, v := range videos {
			if v.Status != models.StatusSucceeded {
				continue
			}
			ready = append(ready, models.DownloadVideo{
				Filename: filepath.Base(v.VideoPath.String),
				URL:      v.VideoURL.String,
			})
		}

		if len(ready) > 0 {
			downloads = append(downloads, models.DownloadEntry{
				OrderID: order.ID,
				Package: order.Package,
				AddOns:  order.AddOns.String,
				Date:    order.CreatedAt,
				Videos:  ready,
			})
		}
	}

	c.JSON(http.StatusOK, models.DownloadCenterResponse{Downloads: downloads, Count: len(downloads)})
}

// Reorder creates a fresh order linked to a previous one, copying its
// package and add-ons, with a new unpaid invoice.
func (h *ClientHandler) Reorder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid order id"})
		return
	}

	old, err := h.store.GetOrder(orderID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load order", Message: err.Error()})
		return
	}

	newOrder := &models.Order{
		UserID:  old.UserID,
		Package: old.Package,
		AddOns:  old.AddOns,
	}
	newOrder.ParentOrderID.Int64, newOrder.ParentOrderID.Valid = old.ID, true
	if err := h.store.CreateOrder(newOrder); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create order", Message: err.Error()})
		return
	}

	invoice := &models.Invoice{OrderID: newOrder.ID, UserID: old.UserID.Int64, Amount: invoiceAmount}
	if err := h.store.CreateInvoice(invoice); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to create invoice", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": gin.H{
			"id":        newOrder.ID,
			"linked_to": old.ID,
			"package":   newOrder.Package,
			"add_ons":   newOrder.AddOns.String,
		},
		"invoice": models.InvoiceInfo{
			ID:      invoice.ID,
			OrderID: invoice.OrderID,
			Amount:  invoice.Amount,
			Status:  "unpaid",
			Date:    invoice.CreatedAt,
		},
	})
}

// Invoices lists every invoice belonging to the authenticated user.
func (h *ClientHandler) Invoices(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	invoices, err := h.store.ListInvoicesByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load invoices", Message: err.Error()})
		return
	}

	infos := []models.InvoiceInfo{}
	for _, inv := range invoices {
		infos = append(infos, invoiceInfo(&inv))
	}

	c.JSON(http.StatusOK, gin.H{"invoices": infos})
}

// Invoice returns one invoice by id.
func (h *ClientHandler) Invoice(c *gin.Context) {
	invoiceID, err := strconv.ParseInt(c.Param("invoice_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid invoice id"})
		return
	}

	invoice, err := h.store.GetInvoice(invoiceID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "invoice not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load invoice", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, invoiceInfo(invoice))
}

// PayInvoice marks the order's invoice paid. A payment provider
// integration will replace the direct flip later.
func (h *ClientHandler) PayInvoice(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid order id"})
		return
	}

	invoice, err := h.store.GetInvoiceByOrder(orderID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "invoice not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load invoice", Message: err.Error()})
		return
	}

	now := time.Now()
	if !invoice.IsPaid {
		if err := h.store.MarkInvoicePaid(invoice.ID, now); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to mark invoice paid", Message: err.Error()})
			return
		}
		invoice.IsPaid = true
		invoice.PaidAt.Time, invoice.PaidAt.Valid = now, true
	}

	c.JSON(http.StatusOK, invoiceInfo(invoice))
}

// Notifications lists the user's notifications, newest first.
func (h *ClientHandler) Notifications(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return
	}

	notifications, err := h.store.ListNotificationsByUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load notifications", Message: err.Error()})
		return
	}

	infos := []models.NotificationInfo{}
	for _, n := range notifications {
		infos = append(infos, models.NotificationInfo{
			ID:        n.ID,
			Category:  n.Category,
			Message:   n.Message,
			CreatedAt: n.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"notifications": infos, "count": len(infos)})
}

func invoiceInfo(inv *models.Invoice) models.InvoiceInfo {
	status := "unpaid"
	if inv.IsPaid {
		status = "paid"
	}
	info := models.InvoiceInfo{
		ID:      inv.ID,
		OrderID: inv.OrderID,
		Amount:  inv.Amount,
		Status:  status,
		Date:    inv.CreatedAt,
	}
	if inv.PaidAt.Valid {
		t := inv.PaidAt.Time
		info.PaidAt = &t
	}
	return info
}
