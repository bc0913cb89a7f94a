package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceType represents how the order is served
type ServiceType string

const (
	DineIn   ServiceType = "dine-in"
	Pickup   ServiceType = "pickup"
	Delivery ServiceType = "delivery"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Normalize lower-cases a stored status so comparisons are case-insensitive.
func (s OrderStatus) Normalize() OrderStatus {
	return OrderStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// VariationSnapshot is the variation as it was when the order was placed.
type VariationSnapshot struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// AddOnSnapshot is an add-on as it was when the order was placed.
type AddOnSnapshot struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// OrderItem is a line of an order, captured at submission time
type OrderItem struct {
	ID         int                `json:"id,omitempty"`
	OrderID    string             `json:"order_id,omitempty"`
	MenuItemID string             `json:"menu_item_id"`
	Name       string             `json:"name"`
	UnitPrice  decimal.Decimal    `json:"unit_price"`
	Quantity   int                `json:"quantity"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
	Variation  *VariationSnapshot `json:"variation,omitempty"`
	AddOns     []AddOnSnapshot    `json:"add_ons,omitempty"`
}

// Order represents a customer order
type Order struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customer_name"`
	ContactNumber   string          `json:"contact_number"`
	ServiceType     ServiceType     `json:"service_type"`
	TableNumber     *string         `json:"table_number,omitempty"`
	Address         *string         `json:"address,omitempty"`
	PickupTime      *string         `json:"pickup_time,omitempty"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber *string         `json:"reference_number,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	ReceiptURL      *string         `json:"receipt_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CreateOrderRequest represents the request to create a new order
type CreateOrderRequest struct {
	SessionID     string          `json:"session_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	ContactNumber string          `json:"contact_number"`
	ServiceType   string          `json:"service_type"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Items         []OrderItem     `json:"items"`
	TableNumber   *string         `json:"table_number,omitempty"`
	Address       *string         `json:"address,omitempty"`
	PickupTime    *string         `json:"pickup_time,omitempty"`
	Reference     *string         `json:"reference_number,omitempty"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	OrderID string          `json:"order_id"`
	ShortID string          `json:"short_id"`
	Status  OrderStatus     `json:"status"`
	Total   decimal.Decimal `json:"total"`
}

// OrderStatusHistory represents an entry in the order status log
type OrderStatusHistory struct {
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changed_by"`
	ChangedAt time.Time   `json:"timestamp"`
	Notes     *string     `json:"notes,omitempty"`
}

// ValidationError reports the first invalid field of a request.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CalculateTotal sums the item subtotals.
func (req *CreateOrderRequest) CalculateTotal() decimal.Decimal {
	return SumSubtotals(req.Items)
}

func SumSubtotals(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// Validate validates the create order request. requireContact selects the
// checkout variant where a contact number is mandatory.
func (req *CreateOrderRequest) Validate(requireContact bool) error {
	if err := validateCustomerName(req.CustomerName); err != nil {
		return err
	}

	if requireContact && strings.TrimSpace(req.ContactNumber) == "" {
		return ValidationError{Field: "contact_number", Message: "contact number is required"}
	}

	serviceType, err := ParseServiceType(req.ServiceType)
	if err != nil {
		return err
	}

	if serviceType == Delivery && (req.Address == nil || strings.TrimSpace(*req.Address) == "") {
		return ValidationError{Field: "address", Message: "address is required for delivery orders"}
	}

	if err := validateItems(req.Items); err != nil {
		return err
	}

	if !req.Total.IsZero() && !req.Total.Equal(req.CalculateTotal()) {
		return ValidationError{Field: "total", Message: "total must equal the sum of item subtotals"}
	}

	return nil
}

// ParseServiceType validates the service type field
func ParseServiceType(s string) (ServiceType, error) {
	switch ServiceType(strings.ToLower(strings.TrimSpace(s))) {
	case DineIn:
		return DineIn, nil
	case Pickup:
		return Pickup, nil
	case Delivery:
		return Delivery, nil
	case "":
		return "", ValidationError{Field: "service_type", Message: "service type is required"}
	default:
		return "", ValidationError{Field: "service_type", Message: "service type must be one of: dine-in, pickup, delivery"}
	}
}

func validateCustomerName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "customer_name", Message: "customer name is required"}
	}
	if len(name) > 100 {
		return ValidationError{Field: "customer_name", Message: "customer name must be less than 100 characters"}
	}
	return nil
}

func validateItems(items []OrderItem) error {
	if len(items) == 0 {
		return ValidationError{Field: "items", Message: "items cannot be empty"}
	}

	for i, item := range items {
		prefix := fmt.Sprintf("items[%d]", i)
		if _, err := uuid.Parse(item.MenuItemID); err != nil {
			return ValidationError{Field: prefix + ".menu_item_id", Message: "menu item id must be a valid UUID"}
		}
		if strings.TrimSpace(item.Name) == "" {
			return ValidationError{Field: prefix + ".name", Message: "item name is required"}
		}
		if item.Quantity <= 0 {
			return ValidationError{Field: prefix + ".quantity", Message: "item quantity must be greater than 0"}
		}
		if item.UnitPrice.IsNegative() {
			return ValidationError{Field: prefix + ".unit_price", Message: "item price cannot be negative"}
		}
		if !item.Subtotal.Equal(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))) {
			return ValidationError{Field: prefix + ".subtotal", Message: "subtotal must equal unit price times quantity"}
		}
	}
	return nil
}
