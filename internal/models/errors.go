package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrMissingIdentifiers = errors.New("missing identifiers")
)

// StockError names the menu item that could not be fulfilled.
type StockError struct {
	Item      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.Item)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
