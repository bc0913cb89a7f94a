package messaging

import (
	"errors"
	"strings"
	"testing"

	"cafe-pos/internal/models"
)

func TestDecode(t *testing.T) {
	var msg models.StatusUpdateMessage
	if err := Decode([]byte(`{"order_id":"o1","old_status":"confirmed","new_status":"preparing","changed_by":"kitchen"}`), &msg); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.OrderID != "o1" || msg.NewStatus != models.StatusPreparing {
		t.Fatalf("unexpected message %+v", msg)
	}

	if err := Decode([]byte(`{not json`), &msg); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestBindings(t *testing.T) {
	if len(bindings) != 1 || bindings[0].queue != NotificationsQueue || bindings[0].exchange != NotificationsExchange {
		t.Fatalf("only the notifier queue should be shared: %+v", bindings)
	}
}

func TestNewBroadcastConsumer(t *testing.T) {
	tests := []struct {
		prefix     string
		exchange   string
		routingKey string
	}{
		{KitchenOrdersQueue, OrdersExchange, KitchenOrdersRoutingKey},
		{KitchenStatusQueue, NotificationsExchange, ""},
		{TrackingQueue, NotificationsExchange, ""},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			a := NewBroadcastConsumer(nil, nil, tt.prefix, tt.exchange, tt.routingKey, 1)
			b := NewBroadcastConsumer(nil, nil, tt.prefix, tt.exchange, tt.routingKey, 1)
			if a.queueName == b.queueName {
				t.Fatalf("two instances share queue %s", a.queueName)
			}
			if !strings.HasPrefix(a.queueName, tt.prefix+".") {
				t.Fatalf("queue %s lacks prefix %s", a.queueName, tt.prefix)
			}
			if a.instance == nil || a.instance.queue != a.queueName || a.instance.exchange != tt.exchange || a.instance.routingKey != tt.routingKey {
				t.Fatalf("unexpected binding %+v", a.instance)
			}
		})
	}
}
