// Package notification prints human-readable notices for order status changes.
package notification

import (
	"context"
	"fmt"
	"io"

	"cafe-pos/internal/export"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/messaging"
	"cafe-pos/internal/models"
)

// Consumer is satisfied by *messaging.Consumer.
type Consumer interface {
	Run(ctx context.Context, handler messaging.MessageHandler) error
}

// Subscriber handles notification messages
type Subscriber struct {
	consumer Consumer
	out      io.Writer
	logger   *logger.Logger
}

// NewSubscriber creates a new notification subscriber writing notices to out.
func NewSubscriber(consumer Consumer, out io.Writer, log *logger.Logger) *Subscriber {
	return &Subscriber{consumer: consumer, out: out, logger: log}
}

// Start consumes until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()
	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	err := s.consumer.Run(ctx, s.HandleNotification)
	if ctx.Err() != nil {
		s.logger.Info("graceful_shutdown", "Notification subscriber stopped", requestID, nil)
		return nil
	}
	return err
}

// HandleNotification processes one status update message.
func (s *Subscriber) HandleNotification(_ context.Context, body []byte) error {
	var msg models.StatusUpdateMessage
	if err := messaging.Decode(body, &msg); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(s.out, FormatNotification(&msg)); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}

	s.logger.Info("notification_displayed", "Notification displayed to user", "", map[string]interface{}{
		"order_id":   msg.OrderID,
		"old_status": string(msg.OldStatus),
		"new_status": string(msg.NewStatus),
		"changed_by": msg.ChangedBy,
		"timestamp":  msg.Timestamp.Format("2006-01-02 15:04:05"),
	})
	return nil
}

// FormatNotification creates a human-readable notification message
func FormatNotification(msg *models.StatusUpdateMessage) string {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")
	order := export.ShortID(msg.OrderID)

	switch msg.NewStatus.Normalize() {
	case models.StatusConfirmed:
		return fmt.Sprintf("📝 [%s] Order %s has been confirmed by %s.", timestamp, order, msg.ChangedBy)
	case models.StatusPreparing:
		return fmt.Sprintf("☕ [%s] Order %s is now being prepared by %s.", timestamp, order, msg.ChangedBy)
	case models.StatusReady:
		return fmt.Sprintf("✅ [%s] Order %s is ready! Prepared by %s.", timestamp, order, msg.ChangedBy)
	case models.StatusCompleted:
		return fmt.Sprintf("🎉 [%s] Order %s has been completed. Thank you for your business.", timestamp, order)
	case models.StatusCancelled:
		return fmt.Sprintf("❌ [%s] Order %s has been cancelled.", timestamp, order)
	default:
		return fmt.Sprintf("📋 [%s] Order %s status changed from '%s' to '%s' by %s.",
			timestamp, order, msg.OldStatus, msg.NewStatus, msg.ChangedBy)
	}
}
