package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderMessage is published to the kitchen when an order is created
type OrderMessage struct {
	OrderID      string          `json:"order_id"`
	CustomerName string          `json:"customer_name"`
	ServiceType  ServiceType     `json:"service_type"`
	TableNumber  *string         `json:"table_number,omitempty"`
	Items        []OrderItem     `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// StatusUpdateMessage represents a status update notification
type StatusUpdateMessage struct {
	OrderID   string      `json:"order_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	ChangedBy string      `json:"changed_by"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewOrderMessage builds the kitchen message for a stored order.
func NewOrderMessage(order *Order) *OrderMessage {
	return &OrderMessage{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		ServiceType:  order.ServiceType,
		TableNumber:  order.TableNumber,
		Items:        order.Items,
		Total:        order.Total,
		Status:       order.Status,
		CreatedAt:    order.CreatedAt,
	}
}

// NewStatusUpdateMessage creates a StatusUpdateMessage for order status changes
func NewStatusUpdateMessage(orderID string, oldStatus, newStatus OrderStatus, changedBy string) *StatusUpdateMessage {
	return &StatusUpdateMessage{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: changedBy,
		Timestamp: time.Now().UTC(),
	}
}

// KitchenRoutingKey generates a routing key for new-order messages
func KitchenRoutingKey(serviceType ServiceType) string {
	return fmt.Sprintf("kitchen.%s", serviceType)
}
