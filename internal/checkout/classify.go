package checkout

import (
	"errors"
	"strings"

	"cafe-pos/internal/models"
)

// Kind is the user-facing category of a failed submission.
type Kind string

const (
	KindInsufficientStock  Kind = "insufficient_stock"
	KindRateLimited        Kind = "rate_limited"
	KindMissingIdentifiers Kind = "missing_identifiers"
	KindGeneric            Kind = "generic"
)

const (
	CooldownNotice = "Too many orders: Please wait 1 minute before placing another order."
	GenericNotice  = "Failed to create order. Please try again."
)

// Failure pairs a kind with the notice shown to the customer.
type Failure struct {
	Kind   Kind   `json:"kind"`
	Notice string `json:"notice"`
}

// Classify maps a creation error to a notice. Typed errors are matched first;
// errors that arrive only as text fall back to substring matching.
func Classify(err error) Failure {
	if err == nil {
		return Failure{}
	}
	msg := err.Error()

	var stockErr *models.StockError
	switch {
	case errors.As(err, &stockErr):
		return Failure{Kind: KindInsufficientStock, Notice: stockErr.Error()}
	case errors.Is(err, models.ErrInsufficientStock):
		return Failure{Kind: KindInsufficientStock, Notice: msg}
	case errors.Is(err, models.ErrRateLimited):
		return Failure{Kind: KindRateLimited, Notice: CooldownNotice}
	case errors.Is(err, models.ErrMissingIdentifiers):
		return Failure{Kind: KindMissingIdentifiers, Notice: CooldownNotice}
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "insufficient stock"):
		return Failure{Kind: KindInsufficientStock, Notice: msg}
	case strings.Contains(lower, "rate limit"):
		return Failure{Kind: KindRateLimited, Notice: CooldownNotice}
	case strings.Contains(lower, "missing identifiers"):
		return Failure{Kind: KindMissingIdentifiers, Notice: CooldownNotice}
	default:
		return Failure{Kind: KindGeneric, Notice: GenericNotice}
	}
}
