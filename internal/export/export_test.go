package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

func strPtr(s string) *string { return &s }

func sampleOrder() models.Order {
	return models.Order{
		ID:            "4f1c2a9e-77b1-4d0e-9c3a-1234abcdef90",
		CustomerName:  "Ana Cruz",
		ContactNumber: "09171234567",
		ServiceType:   models.DineIn,
		TableNumber:   strPtr("7"),
		Total:         decimal.RequireFromString("245"),
		Status:        models.StatusCompleted,
		CreatedAt:     time.Date(2026, 3, 5, 14, 7, 0, 0, time.UTC),
		Items: []models.OrderItem{
			{
				Name:      "Latte",
				UnitPrice: decimal.RequireFromString("165"),
				Quantity:  1,
				Subtotal:  decimal.RequireFromString("165"),
				Variation: &models.VariationSnapshot{ID: "lg", Name: "Large"},
				AddOns: []models.AddOnSnapshot{
					{Name: "Extra Shot", Quantity: 2},
					{Name: "Oat Milk", Quantity: 1},
				},
			},
			{Name: "Croissant", UnitPrice: decimal.RequireFromString("40"), Quantity: 2, Subtotal: decimal.RequireFromString("80")},
		},
	}
}

func TestShortID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"4f1c2a9e-77b1-4d0e-9c3a-1234abcdef90", "ABCDEF90"},
		{"abc", "ABC"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ShortID(tt.in); got != tt.want {
			t.Errorf("ShortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestServiceLabel(t *testing.T) {
	tests := []struct {
		in   models.ServiceType
		want string
	}{
		{models.DineIn, "Dine-In"},
		{models.Pickup, "Takeout"},
		{models.Delivery, "Delivery"},
		{"PICKUP", "Takeout"},
		{"drive-thru", "Drive thru"},
		{"élite-lounge", "Élite lounge"},
		{"ñ", "Ñ"},
	}
	for _, tt := range tests {
		if got := ServiceLabel(tt.in); got != tt.want {
			t.Errorf("ServiceLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRow(t *testing.T) {
	o := sampleOrder()
	got := Row(o, time.UTC)
	want := []string{"ABCDEF90", "Ana Cruz", "09171234567", "N/A", "245.00", "03/05/2026 02:07 PM", "Dine-In", "N/A"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Row() = %v, want %v", got, want)
	}

	o.Notes = strPtr("no sugar")
	if got := Row(o, time.UTC); got[7] != "no sugar" {
		t.Fatalf("notes column = %q", got[7])
	}
}

func TestCSVTimestamp_Location(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	got := CSVTimestamp(time.Date(2026, 12, 31, 20, 30, 0, 0, time.UTC), manila)
	if got != "01/01/2027 04:30 AM" {
		t.Fatalf("CSVTimestamp() = %q", got)
	}
}

func TestWriteCSV(t *testing.T) {
	completed := sampleOrder()
	upper := sampleOrder()
	upper.ID = "zzzzzzzz-0000-0000-0000-000000000001"
	upper.Status = "COMPLETED"
	pending := sampleOrder()
	pending.Status = models.StatusPending

	var buf bytes.Buffer
	n, err := WriteCSV(&buf, []models.Order{completed, pending, upper}, time.UTC)
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "OrderID,CustName,ContactNum,Email,TotalSpent,OrderDateandTime,ServiceType,remarks" {
		t.Fatalf("unexpected header %q", lines[0])
	}
}

func TestWriteCSV_NothingEligible(t *testing.T) {
	pending := sampleOrder()
	pending.Status = models.StatusReady

	var buf bytes.Buffer
	_, err := WriteCSV(&buf, []models.Order{pending}, time.UTC)
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("nothing may be written when no order qualifies")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)); got != "completed_orders_2026-10-15.csv" {
		t.Fatalf("FileName() = %q", got)
	}
}

func TestReceipt(t *testing.T) {
	o := sampleOrder()
	o.ReferenceNumber = strPtr("GC-12345")

	var buf bytes.Buffer
	err := Receipt(&buf, o, ReceiptOptions{ShopName: "Kalye 11 Kafe", CurrencySymbol: "₱", Location: time.UTC})
	if err != nil {
		t.Fatalf("Receipt: %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		"Kalye 11 Kafe",
		"Order #ABCDEF90",
		"Table:",
		"Latte x1",
		"Size: Large",
		"Add-ons: Extra Shot x2, Oat Milk",
		"₱165.00 x 1 = ₱165.00",
		"₱40.00 x 2 = ₱80.00",
		"GC-12345",
		"TOTAL: ₱245.00",
		"Status: COMPLETED",
		"80mm",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("receipt missing %q", want)
		}
	}
	if strings.Contains(html, "Address:") || strings.Contains(html, "Notes:") {
		t.Error("absent fields should not be rendered")
	}
}

func TestReceipt_EscapesCustomerInput(t *testing.T) {
	o := sampleOrder()
	o.CustomerName = "<script>alert(1)</script>"

	var buf bytes.Buffer
	if err := Receipt(&buf, o, ReceiptOptions{ShopName: "Kalye 11 Kafe", CurrencySymbol: "₱"}); err != nil {
		t.Fatalf("Receipt: %v", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Fatal("customer input must be escaped")
	}
}
