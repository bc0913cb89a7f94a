package order

import (
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

func TestParseFilter(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)

	tests := []struct {
		name    string
		query   string
		wantErr bool
		check   func(t *testing.T, f Filter)
	}{
		{
			name:  "defaults",
			query: "",
			check: func(t *testing.T, f Filter) {
				if f.Sort != SortCreatedAt || !f.Desc || f.Status != "" {
					t.Fatalf("unexpected defaults %+v", f)
				}
			},
		},
		{
			name:  "status all means no filter",
			query: "status=all",
			check: func(t *testing.T, f Filter) {
				if f.Status != "" {
					t.Fatalf("status = %q", f.Status)
				}
			},
		},
		{
			name:  "inclusive whole days",
			query: "from=2025-03-01&to=2025-03-01",
			check: func(t *testing.T, f Filter) {
				if !f.From.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, manila)) {
					t.Fatalf("from = %v", f.From)
				}
				if !f.To.Equal(time.Date(2025, 3, 1, 23, 59, 59, 999999999, manila)) {
					t.Fatalf("to = %v", f.To)
				}
			},
		},
		{
			name:  "sort and direction",
			query: "sort=total&dir=ASC&q=%20Ana%20&status=Ready",
			check: func(t *testing.T, f Filter) {
				if f.Sort != SortTotal || f.Desc || f.Query != "ana" || f.Status != models.StatusReady {
					t.Fatalf("unexpected filter %+v", f)
				}
			},
		},
		{name: "bad status", query: "status=lost", wantErr: true},
		{name: "bad date", query: "from=03/01/2025", wantErr: true},
		{name: "reversed range", query: "from=2025-03-02&to=2025-03-01", wantErr: true},
		{name: "bad sort", query: "sort=notes", wantErr: true},
		{name: "bad direction", query: "dir=up", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := url.ParseQuery(tt.query)
			f, err := ParseFilter(v, manila)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFilter: %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestFilter_Apply(t *testing.T) {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	orders := []models.Order{
		{ID: "aaa111", CustomerName: "Carla", ContactNumber: "0917", Status: models.StatusCompleted, Total: decimal.NewFromInt(300), CreatedAt: base},
		{ID: "bbb222", CustomerName: "ana", ContactNumber: "0918", Status: "Pending", Total: decimal.NewFromInt(100), CreatedAt: base.Add(time.Hour), Address: strPtr("Rizal Ave")},
		{ID: "ccc333", CustomerName: "Ben", ContactNumber: "0919", Status: models.StatusCompleted, Total: decimal.NewFromInt(200), CreatedAt: base.Add(48 * time.Hour)},
	}

	ids := func(os []models.Order) []string {
		out := make([]string, len(os))
		for i, o := range os {
			out[i] = o.ID
		}
		return out
	}
	to := base.Add(24 * time.Hour)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"newest first by default", Filter{Sort: SortCreatedAt, Desc: true}, []string{"ccc333", "bbb222", "aaa111"}},
		{"status is case-insensitive", Filter{Status: models.StatusPending}, []string{"bbb222"}},
		{"search address", Filter{Query: "rizal"}, []string{"bbb222"}},
		{"search id", Filter{Query: "ccc"}, []string{"ccc333"}},
		{"date range", Filter{To: &to}, []string{"aaa111", "bbb222"}},
		{"total ascending", Filter{Sort: SortTotal}, []string{"bbb222", "ccc333", "aaa111"}},
		{"name ignores case", Filter{Sort: SortCustomerName}, []string{"bbb222", "ccc333", "aaa111"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(tt.filter.Apply(orders))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	large := &models.VariationSnapshot{Name: "Large"}
	orders := []models.Order{
		{Status: models.StatusCompleted, Total: decimal.NewFromInt(330), Items: []models.OrderItem{
			{Name: "Latte", Quantity: 1, Subtotal: decimal.NewFromInt(120)},
			{Name: "Latte", Variation: large, Quantity: 1, Subtotal: decimal.NewFromInt(150)},
			{Name: "Cookie", Quantity: 1, Subtotal: decimal.NewFromInt(60)},
		}},
		{Status: "COMPLETED", Total: decimal.NewFromInt(180), Items: []models.OrderItem{
			{Name: "Cookie", Quantity: 3, Subtotal: decimal.NewFromInt(180)},
		}},
		{Status: models.StatusCancelled, Total: decimal.NewFromInt(999), Items: []models.OrderItem{
			{Name: "Cake", Quantity: 9, Subtotal: decimal.NewFromInt(999)},
		}},
	}

	s := Summarize(orders)
	if s.CompletedOrders != 2 {
		t.Fatalf("completed = %d", s.CompletedOrders)
	}
	if !s.TotalSales.Equal(decimal.NewFromInt(510)) || !s.AverageOrder.Equal(decimal.NewFromInt(255)) {
		t.Fatalf("sales = %s avg = %s", s.TotalSales, s.AverageOrder)
	}
	if len(s.Items) != 3 {
		t.Fatalf("items = %+v", s.Items)
	}
	if s.Items[0].Name != "Cookie" || s.Items[0].Quantity != 4 || !s.Items[0].Total.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("top item = %+v", s.Items[0])
	}
	if s.Items[2].Name != "Latte (Large)" {
		t.Fatalf("variation rows should be separate: %+v", s.Items)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.CompletedOrders != 0 || !s.AverageOrder.IsZero() || s.Items == nil {
		t.Fatalf("unexpected empty summary %+v", s)
	}
}
