package lifecycle

import (
	"errors"
	"testing"
	"time"

	"cafe-pos/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		from  models.OrderStatus
		to    models.OrderStatus
		want  bool
	}{
		{"kitchen starts preparing", Kitchen, models.StatusConfirmed, models.StatusPreparing, true},
		{"kitchen marks ready", Kitchen, models.StatusPreparing, models.StatusReady, true},
		{"kitchen cannot skip", Kitchen, models.StatusConfirmed, models.StatusReady, false},
		{"kitchen cannot regress", Kitchen, models.StatusPreparing, models.StatusConfirmed, false},
		{"kitchen cannot touch pending", Kitchen, models.StatusPending, models.StatusConfirmed, false},
		{"kitchen cannot complete", Kitchen, models.StatusReady, models.StatusCompleted, false},
		{"kitchen cannot cancel", Kitchen, models.StatusPreparing, models.StatusCancelled, false},
		{"staff confirms", Staff, models.StatusPending, models.StatusConfirmed, true},
		{"staff completes", Staff, models.StatusReady, models.StatusCompleted, true},
		{"staff cancels", Staff, models.StatusPending, models.StatusCancelled, true},
		{"staff regresses", Staff, models.StatusReady, models.StatusPreparing, true},
		{"staff reopens terminal", Staff, models.StatusCancelled, models.StatusPending, true},
		{"same status is not a move", Staff, models.StatusReady, models.StatusReady, false},
		{"unknown status", Staff, models.StatusReady, "shipped", false},
		{"customer cannot move orders", Customer, models.StatusPending, models.StatusCancelled, false},
		{"case insensitive", Kitchen, "CONFIRMED", "Preparing", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.actor, tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tt.actor, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTransition_Error(t *testing.T) {
	if _, err := Transition(Kitchen, models.StatusReady, models.StatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, err := Transition(Staff, models.StatusReady, "COMPLETED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != models.StatusCompleted {
		t.Fatalf("expected normalized status, got %q", got)
	}
}

func TestInitial(t *testing.T) {
	if Initial(VariantStandard) != models.StatusPending {
		t.Fatal("standard checkout should create pending orders")
	}
	if Initial(VariantAutoConfirm) != models.StatusConfirmed {
		t.Fatal("auto-confirm checkout should create confirmed orders")
	}
}

func TestParse(t *testing.T) {
	if s, err := Parse("Ready"); err != nil || s != models.StatusReady {
		t.Fatalf("Parse(Ready) = %q, %v", s, err)
	}
	if _, err := Parse("shipped"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestOffered(t *testing.T) {
	if got := Offered(Kitchen, models.StatusConfirmed); len(got) != 1 || got[0] != models.StatusPreparing {
		t.Fatalf("kitchen on confirmed offered %v", got)
	}
	if got := Offered(Kitchen, models.StatusCompleted); len(got) != 0 {
		t.Fatalf("kitchen on terminal offered %v", got)
	}
	if got := Offered(Staff, models.StatusPending); len(got) != len(All)-1 {
		t.Fatalf("staff selector should offer every other status, got %v", got)
	}
}

func order(id string, status models.OrderStatus, minutesAgo int) models.Order {
	return models.Order{ID: id, Status: status, CreatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC).Add(-time.Duration(minutesAgo) * time.Minute)}
}

func TestKitchenQueue(t *testing.T) {
	orders := []models.Order{
		order("a", models.StatusPreparing, 5),
		order("b", models.StatusPending, 30),
		order("c", models.StatusConfirmed, 20),
		order("d", models.StatusReady, 40),
		order("e", "CONFIRMED", 1),
	}
	got := KitchenQueue(orders)
	want := []string{"c", "a", "e"}
	if len(got) != len(want) {
		t.Fatalf("expected %d orders, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestBuildBoard(t *testing.T) {
	orders := []models.Order{
		order("p1", models.StatusPreparing, 3),
		order("r1", models.StatusReady, 30),
		order("p2", models.StatusPreparing, 10),
		order("r2", models.StatusReady, 2),
		order("c1", models.StatusCompleted, 1),
	}
	board := BuildBoard(orders)
	if len(board.Preparing) != 2 || board.Preparing[0].ID != "p2" || board.Preparing[1].ID != "p1" {
		t.Fatalf("preparing bucket should be oldest first: %+v", board.Preparing)
	}
	if len(board.Ready) != 2 || board.Ready[0].ID != "r2" || board.Ready[1].ID != "r1" {
		t.Fatalf("ready bucket should be newest first: %+v", board.Ready)
	}
}
