package order

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/models"
)

// SortKey is a column the orders list can be sorted by.
type SortKey string

const (
	SortCreatedAt    SortKey = "created_at"
	SortTotal        SortKey = "total"
	SortCustomerName SortKey = "customer_name"
	SortStatus       SortKey = "status"
)

const dateLayout = "2006-01-02"

// Filter narrows and orders the orders list. From and To are whole days in
// the shop's timezone and are both inclusive.
type Filter struct {
	Status models.OrderStatus
	From   *time.Time
	To     *time.Time
	Query  string
	Sort   SortKey
	Desc   bool
}

// ParseFilter reads a Filter from query parameters:
// status, from, to (YYYY-MM-DD), q, sort, dir (asc|desc).
func ParseFilter(v url.Values, loc *time.Location) (Filter, error) {
	f := Filter{Sort: SortCreatedAt, Desc: true}

	if raw := strings.TrimSpace(v.Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
		s, err := lifecycle.Parse(raw)
		if err != nil {
			return Filter{}, models.ValidationError{Field: "status", Message: err.Error()}
		}
		f.Status = s
	}

	if raw := v.Get("from"); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return Filter{}, models.ValidationError{Field: "from", Message: "date must be YYYY-MM-DD"}
		}
		f.From = &t
	}
	if raw := v.Get("to"); raw != "" {
		t, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return Filter{}, models.ValidationError{Field: "to", Message: "date must be YYYY-MM-DD"}
		}
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.To = &end
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return Filter{}, models.ValidationError{Field: "to", Message: "end date is before start date"}
	}

	f.Query = strings.ToLower(strings.TrimSpace(v.Get("q")))

	switch key := SortKey(v.Get("sort")); key {
	case "":
	case SortCreatedAt, SortTotal, SortCustomerName, SortStatus:
		f.Sort = key
	default:
		return Filter{}, models.ValidationError{Field: "sort", Message: fmt.Sprintf("cannot sort by %q", key)}
	}

	switch strings.ToLower(v.Get("dir")) {
	case "":
	case "asc":
		f.Desc = false
	case "desc":
		f.Desc = true
	default:
		return Filter{}, models.ValidationError{Field: "dir", Message: "dir must be asc or desc"}
	}

	return f, nil
}

// Matches reports whether o passes the status, date and text filters.
func (f Filter) Matches(o models.Order) bool {
	if f.Status != "" && o.Status.Normalize() != f.Status {
		return false
	}
	if f.From != nil && o.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && o.CreatedAt.After(*f.To) {
		return false
	}
	if f.Query == "" {
		return true
	}
	address := ""
	if o.Address != nil {
		address = *o.Address
	}
	for _, field := range []string{o.CustomerName, o.ContactNumber, o.ID, address} {
		if strings.Contains(strings.ToLower(field), f.Query) {
			return true
		}
	}
	return false
}

// Apply returns the matching orders in the requested order.
func (f Filter) Apply(orders []models.Order) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if f.Matches(o) {
			out = append(out, o)
		}
	}

	less := func(a, b models.Order) bool {
		switch f.Sort {
		case SortTotal:
			return a.Total.LessThan(b.Total)
		case SortCustomerName:
			return strings.ToLower(a.CustomerName) < strings.ToLower(b.CustomerName)
		case SortStatus:
			return a.Status.Normalize() < b.Status.Normalize()
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}
