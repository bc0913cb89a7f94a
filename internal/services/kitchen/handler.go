// Package kitchen serves the kitchen display: the live ticket queue, the
// one-step advance action and the websocket that tells screens to refresh.
package kitchen

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cafe-pos/internal/auth"
	"cafe-pos/internal/httpapi"
	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

// Orders is the part of the order service the kitchen uses.
type Orders interface {
	KitchenQueue(ctx context.Context) ([]models.Order, error)
	Advance(ctx context.Context, id, changedBy string) (*models.StatusUpdateMessage, error)
}

type Handler struct {
	orders   Orders
	notifier Notifier
	ws       http.HandlerFunc
	tokens   *auth.Tokens
	logger   *logger.Logger
	now      func() time.Time
}

// NewHandler wires the display. ws serves the websocket upgrade.
func NewHandler(orders Orders, notifier Notifier, ws http.HandlerFunc, tokens *auth.Tokens, log *logger.Logger) *Handler {
	return &Handler{orders: orders, notifier: notifier, ws: ws, tokens: tokens, logger: log, now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.Require(h.tokens, lifecycle.Kitchen, lifecycle.Staff))
		r.Get("/kitchen/orders", h.Queue)
		r.Post("/kitchen/orders/{id}/advance", h.Advance)
		r.Get("/kitchen/ws", h.ws)
	})
}

// Queue handles GET /kitchen/orders
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())

	orders, err := h.orders.KitchenQueue(r.Context())
	if err != nil {
		h.logger.Error("kitchen_queue_failed", "Failed to load kitchen queue", requestID, err, nil)
		httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	now := h.now()
	tickets := make([]Ticket, len(orders))
	for i, o := range orders {
		tickets[i] = NewTicket(o, now)
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"orders": tickets,
		"count":  len(tickets),
	})
}

// Advance handles POST /kitchen/orders/{id}/advance
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	requestID := httpapi.RequestID(r.Context())
	id := chi.URLParam(r, "id")

	actor := auth.ActorFrom(r.Context())
	msg, err := h.orders.Advance(r.Context(), id, actor.Username)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			httpapi.WriteError(w, http.StatusNotFound, "Order not found", requestID)
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			httpapi.WriteError(w, http.StatusConflict, "Order cannot be advanced from its current status", requestID)
		default:
			h.logger.Error("kitchen_advance_failed", "Failed to advance order", requestID, err, map[string]interface{}{
				"order_id": id,
			})
			httpapi.WriteError(w, http.StatusInternalServerError, "Internal server error", requestID)
		}
		return
	}

	// refresh this process's screens without waiting for the broker
	h.notifier.OrdersChanged(msg.OrderID, string(msg.NewStatus))
	_ = httpapi.WriteJSON(w, http.StatusOK, msg)
}
