package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cafe-pos/internal/auth"
	"cafe-pos/internal/export"
	"cafe-pos/internal/httpapi"
	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

// Handler handles HTTP requests for orders
type Handler struct {
	service *Service
	tokens  *auth.Tokens
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, tokens *auth.Tokens, log *logger.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, logger: log}
}

// RegisterRoutes mounts the public create endpoint and the staff orders manager.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{id}", h.GetOrder)

	r.Group(func(r chi.Router) {
		r.Use(auth.Require(h.tokens, lifecycle.Staff))
		r.Get("/orders", h.ListOrders)
		r.Get("/orders/summary", h.Summary)
		r.Get("/orders/export.csv", h.ExportCSV)
		r.Get("/orders/{id}/receipt", h.Receipt)
	})

	r.With(auth.Require(h.tokens, lifecycle.Staff, lifecycle.Kitchen)).
		Patch("/orders/{id}/status", h.UpdateStatus)
}

// CreateOrder handles POST /orders requests
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	var req models.CreateOrderRequest
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	resp, err := h.service.CreateOrder(ctx, &req)
	if err != nil {
		status := CreateErrorStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("order_creation_failed", "Failed to create order", requestID, err, map[string]interface{}{
				"customer_name": req.CustomerName,
				"service_type":  req.ServiceType,
			})
			httpapi.WriteError(w, status, "Internal server error", requestID)
			return
		}
		h.logger.Warn("order_rejected", err.Error(), requestID, map[string]interface{}{
			"customer_name": req.CustomerName,
		})
		httpapi.WriteError(w, status, err.Error(), requestID)
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusCreated, resp)
}

// CreateErrorStatus maps order creation failures to HTTP status codes. The
// messages of non-500 errors are safe to show to customers.
func CreateErrorStatus(err error) int {
	var verr models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, models.ErrRateLimited), errors.Is(err, models.ErrMissingIdentifiers):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// GetOrder handles GET /orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	o, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err, requestID)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, o)
}

// ListOrders handles GET /orders with the orders manager filters.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	f, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	orders, err := h.service.List(r.Context(), f)
	if err != nil {
		h.logger.Error("orders_list_failed", "Failed to list orders", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// Summary handles GET /orders/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	f, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), f)
	if err != nil {
		h.logger.Error("orders_summary_failed", "Failed to build sales summary", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, summary)
}

// ExportCSV handles GET /orders/export.csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	f, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	out, err := h.service.ExportCSV(r.Context(), f)
	if errors.Is(err, export.ErrNothingToExport) {
		httpapi.WriteError(w, http.StatusNotFound, "No completed orders to export.", requestID)
		return
	}
	if err != nil {
		h.logger.Error("orders_export_failed", "Failed to export orders", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.logger.Info("orders_exported", fmt.Sprintf("Exported %d completed orders", out.Rows), requestID, map[string]interface{}{
		"file": out.FileName,
	})
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, out.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)
}

// Receipt handles GET /orders/{id}/receipt
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	var buf bytes.Buffer
	if err := h.service.Receipt(r.Context(), chi.URLParam(r, "id"), &buf); err != nil {
		h.writeLookupError(w, err, requestID)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /orders/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	var req statusRequest
	if err := httpapi.DecodeJSON(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	actor := auth.ActorFrom(r.Context())
	msg, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, actor.Role, actor.Username)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrUnknownStatus):
			httpapi.WriteError(w, http.StatusBadRequest, err.Error(), requestID)
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			httpapi.WriteError(w, http.StatusConflict, err.Error(), requestID)
		default:
			h.writeLookupError(w, err, requestID)
		}
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, msg)
}

func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	f, err := ParseFilter(r.URL.Query(), h.service.cfg.Location)
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error(), httpapi.RequestID(r.Context()))
		return Filter{}, false
	}
	return f, true
}

func (h *Handler) writeLookupError(w http.ResponseWriter, err error, requestID string) {
	if errors.Is(err, models.ErrNotFound) {
		httpapi.WriteError(w, http.StatusNotFound, "Order not found", requestID)
		return
	}
	h.logger.Error("order_lookup_failed", "Failed to load order", requestID, err, nil)
	httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
}
