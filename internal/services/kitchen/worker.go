package kitchen

import (
	"context"
	"fmt"
	"sync"

	"cafe-pos/internal/export"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/models"
)

// Notifier is told when the kitchen queue may have changed.
type Notifier interface {
	OrdersChanged(orderID, status string)
}

// Worker turns broker messages into display refreshes.
type Worker struct {
	notifier Notifier
	logger   *logger.Logger
}

func NewWorker(notifier Notifier, log *logger.Logger) *Worker {
	return &Worker{notifier: notifier, logger: log}
}

// Consumer is satisfied by *messaging.Consumer.
type Consumer interface {
	Run(ctx context.Context, handler messaging.MessageHandler) error
}

// Run consumes new orders and status changes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, orders, statuses Consumer) error {
	requestID := logger.GenerateRequestID()
	w.logger.Info("worker_started", "Kitchen display worker started", requestID, nil)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(name string, c Consumer, handler messaging.MessageHandler) {
		defer wg.Done()
		if err := c.Run(ctx, handler); err != nil && ctx.Err() == nil {
			w.logger.Error("consumer_failed", "Message consumer failed", requestID, err, map[string]interface{}{"consumer": name})
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s consumer: %w", name, err))
			mu.Unlock()
		}
	}

	wg.Add(2)
	go run("orders", orders, w.HandleOrder)
	go run("status", statuses, w.HandleStatus)
	wg.Wait()

	w.logger.Info("graceful_shutdown", "Kitchen display worker stopped", requestID, nil)
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// HandleOrder processes a new-order message.
func (w *Worker) HandleOrder(_ context.Context, body []byte) error {
	var msg models.OrderMessage
	if err := messaging.Decode(body, &msg); err != nil {
		return err
	}
	if msg.OrderID == "" {
		return fmt.Errorf("%w: order message without id", messaging.ErrMalformed)
	}

	w.logger.Debug("order_received", fmt.Sprintf("New order %s", export.ShortID(msg.OrderID)), "", map[string]interface{}{
		"order_id":     msg.OrderID,
		"service_type": string(msg.ServiceType),
		"items":        len(msg.Items),
	})
	w.notifier.OrdersChanged(msg.OrderID, string(msg.Status))
	return nil
}

// HandleStatus processes a status-change message.
func (w *Worker) HandleStatus(_ context.Context, body []byte) error {
	var msg models.StatusUpdateMessage
	if err := messaging.Decode(body, &msg); err != nil {
		return err
	}
	if msg.OrderID == "" {
		return fmt.Errorf("%w: status message without id", messaging.ErrMalformed)
	}
	w.notifier.OrdersChanged(msg.OrderID, string(msg.NewStatus))
	return nil
}
