// Package checkout turns a session's cart into an order submission and maps
// backend failures to the notice shown to the customer.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cafe-pos/internal/cart"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
	"cafe-pos/internal/session"
)

var (
	ErrAlreadySubmitting = errors.New("order submission already in progress")
	ErrEmptyCart         = errors.New("cart is empty")
)

// Variant selects which customer details are mandatory.
type Variant int

const (
	// ContactRequired is the standard flow.
	ContactRequired Variant = iota
	// ContactOptional lets walk-in customers skip the contact number.
	ContactOptional
)

const defaultPaymentMethod = "cash"

// Details is what the customer types on the checkout form.
type Details struct {
	CustomerName    string  `json:"customer_name"`
	ContactNumber   string  `json:"contact_number"`
	Notes           string  `json:"notes,omitempty"`
	PaymentMethod   string  `json:"payment_method,omitempty"`
	Address         *string `json:"address,omitempty"`
	PickupTime      *string `json:"pickup_time,omitempty"`
	ReferenceNumber *string `json:"reference_number,omitempty"`
}

// Validate runs before anything reaches the order store.
func (d Details) Validate(v Variant) error {
	if strings.TrimSpace(d.CustomerName) == "" {
		return models.ValidationError{Field: "customer_name", Message: "customer name is required"}
	}
	if v == ContactRequired && strings.TrimSpace(d.ContactNumber) == "" {
		return models.ValidationError{Field: "contact_number", Message: "contact number is required"}
	}
	return nil
}

// OrderCreator is the order store's creation call.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error)
}

// SessionResetter restores a session after a successful order.
type SessionResetter interface {
	Reset(ctx context.Context, s *session.Session) error
}

type Service struct {
	creator  OrderCreator
	sessions SessionResetter
	variant  Variant
	logger   *logger.Logger
}

func NewService(creator OrderCreator, sessions SessionResetter, variant Variant, log *logger.Logger) *Service {
	return &Service{creator: creator, sessions: sessions, variant: variant, logger: log}
}

// BuildRequest snapshots the cart into a creation request. The total is the
// sum of the line subtotals.
func BuildRequest(view session.View, c *cart.Cart, d Details) *models.CreateOrderRequest {
	payment := strings.TrimSpace(d.PaymentMethod)
	if payment == "" {
		payment = defaultPaymentMethod
	}

	req := &models.CreateOrderRequest{
		SessionID:     view.ID,
		CustomerName:  strings.TrimSpace(d.CustomerName),
		ContactNumber: strings.TrimSpace(d.ContactNumber),
		ServiceType:   string(view.ServiceType),
		PaymentMethod: payment,
		Notes:         strings.TrimSpace(d.Notes),
		Items:         c.Snapshot(),
		TableNumber:   view.TableNumber,
		Address:       d.Address,
		PickupTime:    d.PickupTime,
		Reference:     d.ReferenceNumber,
	}
	req.Total = req.CalculateTotal()
	return req
}

// Submit places the order for the session's cart. Only one submission per
// session may be in flight; the cart is cleared only on success.
func (s *Service) Submit(ctx context.Context, sess *session.Session, d Details, requestID string) (*models.CreateOrderResponse, error) {
	if err := d.Validate(s.variant); err != nil {
		return nil, err
	}
	if !sess.BeginSubmit() {
		return nil, ErrAlreadySubmitting
	}
	defer sess.EndSubmit()

	view := sess.View()
	var req *models.CreateOrderRequest
	err := sess.Do(func(c *cart.Cart) error {
		if c.IsEmpty() {
			return ErrEmptyCart
		}
		req = BuildRequest(view, c, d)
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.creator.CreateOrder(ctx, req)
	if err != nil {
		failure := Classify(err)
		s.logger.Warn("checkout_failed", "Order submission failed", requestID, map[string]interface{}{
			"session_id": sess.ID,
			"kind":       string(failure.Kind),
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.sessions.Reset(ctx, sess); err != nil {
		// order is already placed
		s.logger.Error("session_reset_failed", "Failed to reset session after order", requestID, err, map[string]interface{}{
			"session_id": sess.ID,
			"order_id":   resp.OrderID,
		})
	}

	s.logger.Info("checkout_completed", "Order submitted", requestID, map[string]interface{}{
		"session_id": sess.ID,
		"order_id":   resp.OrderID,
		"total":      resp.Total.StringFixed(2),
	})
	return resp, nil
}
