package worker

import (
	"context"
	"fmt"

	"dorbot/internal/broker"
	"dorbot/internal/models"
	"dorbot/internal/transport"
	"dorbot/internal/util"

	"go.uber.org/zap"
)

// EventLog tracks which events have already been handled so redelivered
// Kafka messages do not notify the owner twice.
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// NotifierWorker consumes purchase audit events and pushes owner
// notifications. It runs at-least-once on top of the consumer's
// handle-then-commit loop, deduplicated through the event log.
type NotifierWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	events       EventLog
	messenger    transport.Messenger
	ownerNumber  string
	logger       *zap.Logger
}

// NewNotifierWorker creates a new notifier worker
func NewNotifierWorker(
	consumer *broker.Consumer,
	events EventLog,
	messenger transport.Messenger,
	ownerNumber string,
) *NotifierWorker {
	w := &NotifierWorker{
		consumer:    consumer,
		events:      events,
		messenger:   messenger,
		ownerNumber: ownerNumber,
		logger:      util.NamedLogger("notifier"),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPurchaseCompleted(w.handlePurchaseCompleted)
	eventHandler.OnPurchaseFailed(w.handlePurchaseFailed)
	eventHandler.OnBalanceAdjusted(w.handleBalanceAdjusted)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotifierWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notifier worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotifierWorker) Stop() error {
	w.logger.Info("Stopping notifier worker")
	return w.consumer.Close()
}

func (w *NotifierWorker) handlePurchaseCompleted(ctx context.Context, event *models.PurchaseCompletedEvent) error {
	return w.notifyOnce(ctx, event.EventID, event.EventType, fmt.Sprintf(
		"✅ *Transaksi Sukses*\n\n🧾 %s\n📞 %s → %s\n📦 %s\n💰 Rp. %d\n🌐 %s",
		event.TrxID, event.PhoneNumber, event.TargetNumber,
		event.PackageName, event.Amount, event.HesdaTrxID))
}

func (w *NotifierWorker) handlePurchaseFailed(ctx context.Context, event *models.PurchaseFailedEvent) error {
	return w.notifyOnce(ctx, event.EventID, event.EventType, fmt.Sprintf(
		"❌ *Transaksi Gagal*\n\n🧾 %s\n📞 %s → %s\n📦 %s\n💰 Rp. %d\n📝 %s",
		event.TrxID, event.PhoneNumber, event.TargetNumber,
		event.PackageName, event.Amount, event.Reason))
}

// handleBalanceAdjusted keeps an audit trail of ledger changes in the
// worker log. No owner message; top-ups already notify synchronously.
func (w *NotifierWorker) handleBalanceAdjusted(_ context.Context, event *models.BalanceAdjustedEvent) error {
	w.logger.Info("Balance adjusted",
		zap.String("phone", event.PhoneNumber),
		zap.String("mode", event.Mode),
		zap.Int64("amount", event.Amount),
		zap.Int64("new_saldo", event.NewSaldo))
	return nil
}

// notifyOnce sends the owner one notification per event id. The event is
// marked processed before the send: a lost notification is preferable to
// a duplicate one on redelivery.
func (w *NotifierWorker) notifyOnce(ctx context.Context, eventID, eventType, text string) error {
	processed, err := w.events.IsEventProcessed(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to check event log: %w", err)
	}
	if processed {
		w.logger.Debug("Skipping already-processed event", zap.String("event_id", eventID))
		return nil
	}

	if err := w.events.MarkEventProcessed(ctx, eventID, eventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	if err := w.messenger.Send(ctx, w.ownerNumber, text); err != nil {
		w.logger.Warn("Failed to deliver owner notification",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
	return nil
}
