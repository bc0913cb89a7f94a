// Package export formats stored orders as CSV rows and printable receipts.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"cafe-pos/internal/models"
)

// ErrNothingToExport is returned when no order qualifies for the CSV.
var ErrNothingToExport = errors.New("no completed orders to export")

const (
	placeholder  = "N/A"
	csvLayout    = "01/02/2006 03:04 PM"
	fileDateForm = "2006-01-02"
)

// Header is the fixed CSV column order.
var Header = []string{"OrderID", "CustName", "ContactNum", "Email", "TotalSpent", "OrderDateandTime", "ServiceType", "remarks"}

// ShortID is the last 8 characters of the id, upper-cased.
func ShortID(id string) string {
	if len(id) > 8 {
		id = id[len(id)-8:]
	}
	return strings.ToUpper(id)
}

// ServiceLabel is the human-readable service type.
func ServiceLabel(t models.ServiceType) string {
	s := strings.ToLower(string(t))
	switch s {
	case "dine-in":
		return "Dine-In"
	case "pickup":
		return "Takeout"
	case "delivery":
		return "Delivery"
	case "":
		return ""
	}
	raw := string(t)
	first, size := utf8.DecodeRuneInString(raw)
	return string(unicode.ToUpper(first)) + strings.Replace(raw[size:], "-", " ", 1)
}

// CSVTimestamp formats t as MM/DD/YYYY hh:mm AM/PM in loc, without commas.
func CSVTimestamp(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return strings.ReplaceAll(t.Format(csvLayout), ",", "")
}

// Row is the CSV record for one order.
func Row(o models.Order, loc *time.Location) []string {
	notes := placeholder
	if o.Notes != nil && strings.TrimSpace(*o.Notes) != "" {
		notes = *o.Notes
	}
	return []string{
		ShortID(o.ID),
		o.CustomerName,
		o.ContactNumber,
		placeholder,
		o.Total.StringFixed(2),
		CSVTimestamp(o.CreatedAt, loc),
		ServiceLabel(o.ServiceType),
		notes,
	}
}

// Completed keeps the orders whose status is completed, in any letter case.
func Completed(orders []models.Order) []models.Order {
	var out []models.Order
	for _, o := range orders {
		if o.Status.Normalize() == models.StatusCompleted {
			out = append(out, o)
		}
	}
	return out
}

// WriteCSV writes the header and one row per completed order. When no order
// qualifies nothing is written and ErrNothingToExport is returned.
func WriteCSV(w io.Writer, orders []models.Order, loc *time.Location) (int, error) {
	eligible := Completed(orders)
	if len(eligible) == 0 {
		return 0, ErrNothingToExport
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, o := range eligible {
		if err := cw.Write(Row(o, loc)); err != nil {
			return 0, fmt.Errorf("failed to write csv row for order %s: %w", o.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	return len(eligible), nil
}

// FileName is the download name for an export taken at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("completed_orders_%s.csv", now.Format(fileDateForm))
}
