package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/cart"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
	"cafe-pos/internal/session"
)

type fakeCreator struct {
	err     error
	calls   int
	last    *models.CreateOrderRequest
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeCreator) CreateOrder(_ context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	f.calls++
	f.last = req
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.CreateOrderResponse{OrderID: "order-1", Status: models.StatusPending, Total: req.Total}, nil
}

var tea = &models.MenuItem{ID: "tea", Name: "Milk Tea", BasePrice: decimal.NewFromInt(90), Available: true}

func setup(t *testing.T, creator OrderCreator, variant Variant) (*Service, *session.Manager, *session.Session) {
	t.Helper()
	manager := session.NewManager(session.NewMemoryStore(), logger.Discard())
	sess, err := manager.Start(context.Background(), "4")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sess.Do(func(c *cart.Cart) error {
		_, err := c.Add(tea, 2, nil, nil)
		return err
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return NewService(creator, manager, variant, logger.Discard()), manager, sess
}

func TestDetails_Validate(t *testing.T) {
	tests := []struct {
		name    string
		details Details
		variant Variant
		wantErr bool
	}{
		{"complete", Details{CustomerName: "Ana", ContactNumber: "0917"}, ContactRequired, false},
		{"missing name", Details{ContactNumber: "0917"}, ContactRequired, true},
		{"blank name", Details{CustomerName: "   ", ContactNumber: "0917"}, ContactOptional, true},
		{"missing contact", Details{CustomerName: "Ana"}, ContactRequired, true},
		{"contact optional", Details{CustomerName: "Ana"}, ContactOptional, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.details.Validate(tt.variant)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmit_Success(t *testing.T) {
	creator := &fakeCreator{}
	svc, _, sess := setup(t, creator, ContactRequired)

	resp, err := svc.Submit(context.Background(), sess, Details{CustomerName: "Ana", ContactNumber: "0917"}, "req-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.OrderID != "order-1" {
		t.Fatalf("unexpected response %+v", resp)
	}

	req := creator.last
	if !req.Total.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("total = %s, want 180", req.Total)
	}
	if req.ServiceType != string(models.DineIn) || req.TableNumber == nil || *req.TableNumber != "4" {
		t.Fatalf("service details not taken from session: %+v", req)
	}
	if req.PaymentMethod != "cash" || req.SessionID != sess.ID {
		t.Fatalf("unexpected request %+v", req)
	}

	_ = sess.Do(func(c *cart.Cart) error {
		if !c.IsEmpty() {
			t.Fatal("cart should be cleared after a successful order")
		}
		return nil
	})
}

func TestSubmit_FailureKeepsCart(t *testing.T) {
	creator := &fakeCreator{err: &models.StockError{Item: "Milk Tea"}}
	svc, _, sess := setup(t, creator, ContactRequired)

	_, err := svc.Submit(context.Background(), sess, Details{CustomerName: "Ana", ContactNumber: "0917"}, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if f := Classify(err); f.Kind != KindInsufficientStock || f.Notice != "insufficient stock for Milk Tea" {
		t.Fatalf("unexpected classification %+v", f)
	}
	_ = sess.Do(func(c *cart.Cart) error {
		if c.TotalItems() != 2 {
			t.Fatal("cart must survive a failed submission")
		}
		return nil
	})
	if !sess.BeginSubmit() {
		t.Fatal("guard should be released after failure")
	}
}

func TestSubmit_InvalidDetailsNeverReachStore(t *testing.T) {
	creator := &fakeCreator{}
	svc, _, sess := setup(t, creator, ContactRequired)

	var verr models.ValidationError
	if _, err := svc.Submit(context.Background(), sess, Details{CustomerName: "Ana"}, ""); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if creator.calls != 0 {
		t.Fatal("store must not be called for invalid details")
	}
}

func TestSubmit_EmptyCart(t *testing.T) {
	creator := &fakeCreator{}
	svc, manager, sess := setup(t, creator, ContactOptional)
	_ = manager.Reset(context.Background(), sess)

	if _, err := svc.Submit(context.Background(), sess, Details{CustomerName: "Ana"}, ""); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestSubmit_RejectsConcurrentSubmit(t *testing.T) {
	creator := &fakeCreator{block: make(chan struct{}), entered: make(chan struct{})}
	svc, _, sess := setup(t, creator, ContactRequired)
	details := Details{CustomerName: "Ana", ContactNumber: "0917"}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), sess, details, "")
		done <- err
	}()
	<-creator.entered

	if _, err := svc.Submit(context.Background(), sess, details, ""); !errors.Is(err, ErrAlreadySubmitting) {
		t.Fatalf("expected ErrAlreadySubmitting, got %v", err)
	}

	close(creator.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if creator.calls != 1 {
		t.Fatalf("expected one call to the store, got %d", creator.calls)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   Kind
		wantNotice string
	}{
		{"typed stock error", &models.StockError{Item: "Latte"}, KindInsufficientStock, "insufficient stock for Latte"},
		{"wrapped stock error", fmt.Errorf("tx: %w", &models.StockError{Item: "Latte"}), KindInsufficientStock, "insufficient stock for Latte"},
		{"typed rate limit", fmt.Errorf("create: %w", models.ErrRateLimited), KindRateLimited, CooldownNotice},
		{"typed missing identifiers", models.ErrMissingIdentifiers, KindMissingIdentifiers, CooldownNotice},
		{"text stock error", errors.New("Insufficient stock for Mocha"), KindInsufficientStock, "Insufficient stock for Mocha"},
		{"text rate limit", errors.New("Rate limit exceeded"), KindRateLimited, CooldownNotice},
		{"text missing identifiers", errors.New("missing identifiers"), KindMissingIdentifiers, CooldownNotice},
		{"anything else", errors.New("connection reset"), KindGeneric, GenericNotice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Kind != tt.wantKind || got.Notice != tt.wantNotice {
				t.Fatalf("Classify() = %+v, want {%s %q}", got, tt.wantKind, tt.wantNotice)
			}
		})
	}
}
