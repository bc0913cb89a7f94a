// Package lifecycle is the single authority on order status transitions.
//
// Every surface that moves an order (checkout, kitchen display, orders
// manager) asks this package whether the move is allowed for its actor.
package lifecycle

import (
	"errors"
	"fmt"
	"sort"

	"cafe-pos/internal/models"
)

// Actor is the role of whoever causes a transition.
type Actor string

const (
	Customer Actor = "customer"
	Kitchen  Actor = "kitchen"
	Staff    Actor = "staff"
)

// Variant selects how checkout creates orders.
type Variant string

const (
	// VariantStandard creates orders as pending.
	VariantStandard Variant = "standard"
	// VariantAutoConfirm sends orders straight to the kitchen.
	VariantAutoConfirm Variant = "auto-confirm"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown order status")
)

// All lists the statuses in workflow order.
var All = []models.OrderStatus{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusPreparing,
	models.StatusReady,
	models.StatusCompleted,
	models.StatusCancelled,
}

var kitchenNext = map[models.OrderStatus]models.OrderStatus{
	models.StatusConfirmed: models.StatusPreparing,
	models.StatusPreparing: models.StatusReady,
}

// Parse accepts a status in any letter case.
func Parse(s string) (models.OrderStatus, error) {
	status := models.OrderStatus(s).Normalize()
	for _, known := range All {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// ParseActor maps a role name to an actor.
func ParseActor(s string) (Actor, bool) {
	switch Actor(s) {
	case Customer, Kitchen, Staff:
		return Actor(s), true
	}
	return "", false
}

// Initial is the status a freshly submitted order starts in.
func Initial(v Variant) models.OrderStatus {
	if v == VariantAutoConfirm {
		return models.StatusConfirmed
	}
	return models.StatusPending
}

// IsTerminal reports whether no surface offers a further move.
func IsTerminal(s models.OrderStatus) bool {
	s = s.Normalize()
	return s == models.StatusCompleted || s == models.StatusCancelled
}

// KitchenNext is the single forward step the kitchen display offers.
func KitchenNext(s models.OrderStatus) (models.OrderStatus, bool) {
	next, ok := kitchenNext[s.Normalize()]
	return next, ok
}

// CanTransition reports whether actor may move an order from one status to another.
// Staff have the unrestricted selector and may also reopen terminal orders.
func CanTransition(actor Actor, from, to models.OrderStatus) bool {
	from, to = from.Normalize(), to.Normalize()
	if !known(from) || !known(to) || from == to {
		return false
	}
	switch actor {
	case Kitchen:
		next, ok := kitchenNext[from]
		return ok && next == to
	case Staff:
		return true
	default:
		return false
	}
}

// Transition validates a move and returns the normalized target status.
func Transition(actor Actor, from, to models.OrderStatus) (models.OrderStatus, error) {
	if !CanTransition(actor, from, to) {
		return "", fmt.Errorf("%w: %s cannot move order from %s to %s", ErrInvalidTransition, actor, from, to)
	}
	return to.Normalize(), nil
}

// Offered lists the targets an actor's surface shows for an order.
func Offered(actor Actor, from models.OrderStatus) []models.OrderStatus {
	var out []models.OrderStatus
	if actor == Kitchen && IsTerminal(from) {
		return out
	}
	for _, to := range All {
		if CanTransition(actor, from, to) {
			out = append(out, to)
		}
	}
	return out
}

// KitchenQueue returns confirmed and preparing orders, oldest first.
func KitchenQueue(orders []models.Order) []models.Order {
	var out []models.Order
	for _, o := range orders {
		switch o.Status.Normalize() {
		case models.StatusConfirmed, models.StatusPreparing:
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Board is the read-only status board projection.
type Board struct {
	Preparing []models.Order `json:"preparing"`
	Ready     []models.Order `json:"ready"`
}

// BuildBoard buckets orders: preparing oldest first, ready newest first.
func BuildBoard(orders []models.Order) Board {
	board := Board{Preparing: []models.Order{}, Ready: []models.Order{}}
	for _, o := range orders {
		switch o.Status.Normalize() {
		case models.StatusPreparing:
			board.Preparing = append(board.Preparing, o)
		case models.StatusReady:
			board.Ready = append(board.Ready, o)
		}
	}
	sort.SliceStable(board.Preparing, func(i, j int) bool {
		return board.Preparing[i].CreatedAt.Before(board.Preparing[j].CreatedAt)
	})
	sort.SliceStable(board.Ready, func(i, j int) bool {
		return board.Ready[i].CreatedAt.After(board.Ready[j].CreatedAt)
	})
	return board
}

func known(s models.OrderStatus) bool {
	for _, k := range All {
		if s == k {
			return true
		}
	}
	return false
}
