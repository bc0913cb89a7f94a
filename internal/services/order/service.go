package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cafe-pos/internal/cart"
	"cafe-pos/internal/export"
	"cafe-pos/internal/httpapi"
	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

// Store is the persistence the service needs.
type Store interface {
	CreateOrder(ctx context.Context, o *models.Order, sessionID string, window time.Duration) error
	UpdateStatus(ctx context.Context, id string, actor lifecycle.Actor, to models.OrderStatus, changedBy string) (models.OrderStatus, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, from, to *time.Time) ([]models.Order, error)
	ListByStatus(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error)
	History(ctx context.Context, id string) ([]models.OrderStatusHistory, error)
	CountPendingSince(ctx context.Context, since time.Time) (int, error)
}

// Menu resolves the menu items an order refers to.
type Menu interface {
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
}

// Publisher announces new orders and status changes.
type Publisher interface {
	PublishOrder(ctx context.Context, msg *models.OrderMessage) error
	PublishStatusUpdate(ctx context.Context, msg *models.StatusUpdateMessage) error
}

type Config struct {
	RateLimitWindow time.Duration
	Variant         lifecycle.Variant
	RequireContact  bool
	Location        *time.Location
	Receipt         export.ReceiptOptions
}

// Service implements order creation, status changes and the orders manager.
type Service struct {
	store     Store
	menu      Menu
	publisher Publisher
	cfg       Config
	logger    *logger.Logger
	now       func() time.Time
}

func NewService(store Store, menu Menu, publisher Publisher, cfg Config, log *logger.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Receipt.Location == nil {
		cfg.Receipt.Location = cfg.Location
	}
	return &Service{store: store, menu: menu, publisher: publisher, cfg: cfg, logger: log, now: time.Now}
}

// CreateOrder validates and stores an order, then notifies the kitchen.
func (s *Service) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	requestID := httpapi.RequestID(ctx)

	if err := req.Validate(s.cfg.RequireContact); err != nil {
		return nil, err
	}
	contact := strings.TrimSpace(req.ContactNumber)
	if contact == "" && req.SessionID == "" {
		return nil, models.ErrMissingIdentifiers
	}

	items, err := s.reprice(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	serviceType, _ := models.ParseServiceType(req.ServiceType)
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	o := &models.Order{
		ID:              uuid.NewString(),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		ContactNumber:   contact,
		ServiceType:     serviceType,
		TableNumber:     req.TableNumber,
		Address:         req.Address,
		PickupTime:      req.PickupTime,
		PaymentMethod:   paymentMethod,
		ReferenceNumber: req.Reference,
		Items:           items,
		Total:           models.SumSubtotals(items),
		Status:          lifecycle.Initial(s.cfg.Variant),
	}
	if serviceType != models.DineIn {
		o.TableNumber = nil
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		o.Notes = &notes
	}

	if err := s.store.CreateOrder(ctx, o, req.SessionID, s.cfg.RateLimitWindow); err != nil {
		return nil, err
	}

	s.logger.Info("order_created", "Order stored", requestID, map[string]interface{}{
		"order_id":     o.ID,
		"service_type": string(o.ServiceType),
		"total":        o.Total.StringFixed(2),
		"items":        len(o.Items),
	})

	// the database is authoritative; consumers also re-read it, so a lost
	// message only delays the kitchen display until its next refresh
	if err := s.publisher.PublishOrder(ctx, models.NewOrderMessage(o)); err != nil {
		s.logger.Error("order_publish_failed", "Failed to publish new order", requestID, err, map[string]interface{}{
			"order_id": o.ID,
		})
	}

	return &models.CreateOrderResponse{
		OrderID: o.ID,
		ShortID: export.ShortID(o.ID),
		Status:  o.Status,
		Total:   o.Total,
	}, nil
}

// reprice rebuilds each item from the current menu with the cart rules and
// rejects items whose submitted unit price differs from the menu's.
func (s *Service) reprice(ctx context.Context, items []models.OrderItem) ([]models.OrderItem, error) {
	out := make([]models.OrderItem, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)

		menuItem, err := s.menu.GetMenuItem(ctx, item.MenuItemID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ValidationError{Field: field + ".menu_item_id", Message: "menu item not found"}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load menu item: %w", err)
		}

		var variation *models.Variation
		if item.Variation != nil {
			variation = &models.Variation{ID: item.Variation.ID}
		}
		selections := make([]models.AddOnSelection, 0, len(item.AddOns))
		for _, a := range item.AddOns {
			selections = append(selections, models.AddOnSelection{AddOn: models.AddOn{ID: a.ID}, Count: a.Quantity})
		}

		c := cart.New()
		line, err := c.Add(menuItem, item.Quantity, variation, selections)
		if err != nil {
			return nil, models.ValidationError{Field: field, Message: err.Error()}
		}
		if !line.UnitTotal.Equal(item.UnitPrice) {
			return nil, models.ValidationError{
				Field:   field + ".unit_price",
				Message: fmt.Sprintf("price for %s is %s", menuItem.Name, line.UnitTotal.StringFixed(2)),
			}
		}
		out = append(out, c.Snapshot()[0])
	}
	return out, nil
}

// UpdateStatus applies a transition for actor and broadcasts it.
func (s *Service) UpdateStatus(ctx context.Context, id string, raw string, actor lifecycle.Actor, changedBy string) (*models.StatusUpdateMessage, error) {
	requestID := httpapi.RequestID(ctx)

	to, err := lifecycle.Parse(raw)
	if err != nil {
		return nil, err
	}
	if changedBy == "" {
		changedBy = string(actor)
	}

	from, err := s.store.UpdateStatus(ctx, id, actor, to, changedBy)
	if err != nil {
		return nil, err
	}

	msg := models.NewStatusUpdateMessage(id, from, to, changedBy)
	s.logger.Info("order_status_updated", fmt.Sprintf("Order %s: %s -> %s", export.ShortID(id), from, to), requestID, map[string]interface{}{
		"order_id":   id,
		"old_status": string(from),
		"new_status": string(to),
		"changed_by": changedBy,
	})
	if err := s.publisher.PublishStatusUpdate(ctx, msg); err != nil {
		s.logger.Error("status_publish_failed", "Failed to publish status update", requestID, err, map[string]interface{}{
			"order_id": id,
		})
	}
	return msg, nil
}

// Advance moves an order one step along the kitchen flow.
func (s *Service) Advance(ctx context.Context, id, changedBy string) (*models.StatusUpdateMessage, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, ok := lifecycle.KitchenNext(o.Status.Normalize())
	if !ok {
		return nil, lifecycle.ErrInvalidTransition
	}
	return s.UpdateStatus(ctx, id, string(next), lifecycle.Kitchen, changedBy)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) History(ctx context.Context, id string) ([]models.OrderStatusHistory, error) {
	return s.store.History(ctx, id)
}

// List returns the orders matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Order, error) {
	orders, err := s.store.List(ctx, f.From, f.To)
	if err != nil {
		return nil, err
	}
	return f.Apply(orders), nil
}

// KitchenQueue returns confirmed and preparing orders, oldest first.
func (s *Service) KitchenQueue(ctx context.Context) ([]models.Order, error) {
	orders, err := s.store.ListByStatus(ctx, models.StatusConfirmed, models.StatusPreparing)
	if err != nil {
		return nil, err
	}
	return lifecycle.KitchenQueue(orders), nil
}

// Board returns the preparing and ready buckets of the status board.
func (s *Service) Board(ctx context.Context) (lifecycle.Board, error) {
	orders, err := s.store.ListByStatus(ctx, models.StatusPreparing, models.StatusReady)
	if err != nil {
		return lifecycle.Board{}, err
	}
	return lifecycle.BuildBoard(orders), nil
}

// Summary aggregates the completed orders matching f.
func (s *Service) Summary(ctx context.Context, f Filter) (Summary, error) {
	orders, err := s.List(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	summary := Summarize(orders)

	pending, err := s.store.CountPendingSince(ctx, StartOfDay(s.now(), s.cfg.Location))
	if err != nil {
		return Summary{}, err
	}
	summary.PendingToday = pending
	return summary, nil
}

// CSVExport is a rendered export ready for download.
type CSVExport struct {
	FileName string
	Rows     int
	Body     []byte
}

// ExportCSV renders the completed orders matching f. It returns
// export.ErrNothingToExport when none qualify.
func (s *Service) ExportCSV(ctx context.Context, f Filter) (*CSVExport, error) {
	orders, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	n, err := export.WriteCSV(&buf, orders, s.cfg.Location)
	if err != nil {
		return nil, err
	}
	return &CSVExport{
		FileName: export.FileName(s.now().In(s.cfg.Location)),
		Rows:     n,
		Body:     buf.Bytes(),
	}, nil
}

// Receipt renders the printable receipt of one order.
func (s *Service) Receipt(ctx context.Context, id string, w io.Writer) error {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return export.Receipt(w, *o, s.cfg.Receipt)
}
