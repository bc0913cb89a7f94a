// Package tracking serves the customer-facing order-status board and
// per-order status lookups.
package tracking

import (
	"context"
	"fmt"
	"time"

	"cafe-pos/internal/export"
	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/models"
)

// Orders is the read side of the order service.
type Orders interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	History(ctx context.Context, id string) ([]models.OrderStatusHistory, error)
	Board(ctx context.Context) (lifecycle.Board, error)
}

// Notifier is told when the board may have changed.
type Notifier interface {
	OrdersChanged(orderID, status string)
}

// Service provides tracking functionality
type Service struct {
	orders   Orders
	notifier Notifier
	logger   *logger.Logger
}

func NewService(orders Orders, notifier Notifier, log *logger.Logger) *Service {
	return &Service{orders: orders, notifier: notifier, logger: log}
}

// BoardEntry is what the public board shows of an order. Contact details
// stay off the screen.
type BoardEntry struct {
	OrderID      string             `json:"order_id"`
	ShortID      string             `json:"short_id"`
	CustomerName string             `json:"customer_name"`
	ServiceType  models.ServiceType `json:"service_type"`
	TableNumber  *string            `json:"table_number,omitempty"`
	Status       models.OrderStatus `json:"status"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Board is the public projection of lifecycle.Board.
type Board struct {
	Preparing []BoardEntry `json:"preparing"`
	Ready     []BoardEntry `json:"ready"`
}

func newBoardEntries(orders []models.Order) []BoardEntry {
	out := make([]BoardEntry, len(orders))
	for i, o := range orders {
		out[i] = BoardEntry{
			OrderID:      o.ID,
			ShortID:      export.ShortID(o.ID),
			CustomerName: o.CustomerName,
			ServiceType:  o.ServiceType,
			TableNumber:  o.TableNumber,
			Status:       o.Status.Normalize(),
			UpdatedAt:    o.UpdatedAt,
		}
	}
	return out
}

func (s *Service) Board(ctx context.Context) (Board, error) {
	b, err := s.orders.Board(ctx)
	if err != nil {
		return Board{}, err
	}
	return Board{Preparing: newBoardEntries(b.Preparing), Ready: newBoardEntries(b.Ready)}, nil
}

// OrderStatus is the current state of one order.
type OrderStatus struct {
	OrderID     string             `json:"order_id"`
	ShortID     string             `json:"short_id"`
	Status      models.OrderStatus `json:"status"`
	Message     string             `json:"message"`
	ServiceType models.ServiceType `json:"service_type"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (s *Service) Status(ctx context.Context, id string) (*OrderStatus, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status := o.Status.Normalize()
	return &OrderStatus{
		OrderID:     o.ID,
		ShortID:     export.ShortID(o.ID),
		Status:      status,
		Message:     Describe(status),
		ServiceType: o.ServiceType,
		UpdatedAt:   o.UpdatedAt,
	}, nil
}

func (s *Service) History(ctx context.Context, id string) ([]models.OrderStatusHistory, error) {
	return s.orders.History(ctx, id)
}

// HandleStatus refreshes board subscribers on a status-change message.
func (s *Service) HandleStatus(_ context.Context, body []byte) error {
	var msg models.StatusUpdateMessage
	if err := messaging.Decode(body, &msg); err != nil {
		return err
	}
	if msg.OrderID == "" {
		return fmt.Errorf("%w: status message without id", messaging.ErrMalformed)
	}

	s.logger.Debug("board_refresh", "Status change received", "", map[string]interface{}{
		"order_id":   msg.OrderID,
		"new_status": string(msg.NewStatus),
	})
	s.notifier.OrdersChanged(msg.OrderID, string(msg.NewStatus))
	return nil
}

// Describe is the customer-facing sentence for a status.
func Describe(s models.OrderStatus) string {
	switch s.Normalize() {
	case models.StatusPending:
		return "We received your order and will confirm it shortly."
	case models.StatusConfirmed:
		return "Your order is confirmed and queued in the kitchen."
	case models.StatusPreparing:
		return "Your order is being prepared."
	case models.StatusReady:
		return "Your order is ready!"
	case models.StatusCompleted:
		return "Your order is complete. Thank you!"
	case models.StatusCancelled:
		return "Your order was cancelled."
	default:
		return fmt.Sprintf("Order status: %s", s)
	}
}
