package tracking

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cafe-pos/internal/httpapi"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

// Handler handles HTTP requests for the tracking service
type Handler struct {
	service *Service
	ws      http.HandlerFunc
	logger  *logger.Logger
}

// NewHandler creates a new tracking handler. ws serves the board websocket.
func NewHandler(service *Service, ws http.HandlerFunc, log *logger.Logger) *Handler {
	return &Handler{service: service, ws: ws, logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/board", h.GetBoard)
	r.Get("/board/ws", h.ws)
	r.Get("/orders/{id}/status", h.GetOrderStatus)
	r.Get("/orders/{id}/history", h.GetOrderHistory)
}

// GetBoard handles GET /board
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	board, err := h.service.Board(r.Context())
	if err != nil {
		h.logger.Error("db_query_failed", "Failed to load status board", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, board)
}

// GetOrderStatus handles GET /orders/{id}/status
func (h *Handler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())
	id := chi.URLParam(r, "id")

	status, err := h.service.Status(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "Failed to get order status", id, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, status)
}

// GetOrderHistory handles GET /orders/{id}/history
func (h *Handler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())
	id := chi.URLParam(r, "id")

	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "Failed to get order history", id, requestID, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, history)
}

func (h *Handler) writeLookupError(w http.ResponseWriter, message, id, requestID string, err error) {
	if errors.Is(err, models.ErrNotFound) {
		httpapi.WriteError(w, http.StatusNotFound, "Order not found", requestID)
		return
	}
	h.logger.Error("db_query_failed", message, requestID, err, map[string]interface{}{
		"order_id": id,
	})
	httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
}
