package kitchen

import (
	"fmt"
	"time"

	"cafe-pos/internal/export"
	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/models"
)

type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"

	warningAfter  = 10 * time.Minute
	criticalAfter = 20 * time.Minute
)

// Elapsed renders the time since created the way the ticket shows it.
func Elapsed(created, now time.Time) string {
	d := now.Sub(created)
	if d < time.Minute {
		return "Just now"
	}
	minutes := int(d / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	return fmt.Sprintf("%dh %dm ago", minutes/60, minutes%60)
}

// UrgencyOf grades how long a ticket has waited.
func UrgencyOf(created, now time.Time) Urgency {
	d := now.Sub(created)
	switch {
	case d > criticalAfter:
		return UrgencyCritical
	case d > warningAfter:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// Ticket is an order as the kitchen display shows it.
type Ticket struct {
	models.Order
	ShortID string              `json:"short_id"`
	Elapsed string              `json:"elapsed"`
	Urgency Urgency             `json:"urgency"`
	Next    *models.OrderStatus `json:"next_status,omitempty"`
}

func NewTicket(o models.Order, now time.Time) Ticket {
	t := Ticket{
		Order:   o,
		ShortID: export.ShortID(o.ID),
		Elapsed: Elapsed(o.CreatedAt, now),
		Urgency: UrgencyOf(o.CreatedAt, now),
	}
	if next, ok := lifecycle.KitchenNext(o.Status); ok {
		t.Next = &next
	}
	return t
}
