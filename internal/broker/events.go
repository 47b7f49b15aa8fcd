package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"dorbot/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishPurchaseCompleted publishes PurchaseCompleted event
func (ep *EventPublisher) PublishPurchaseCompleted(ctx context.Context, event *models.PurchaseCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, "trx-"+event.TrxID, event)
}

// PublishPurchaseFailed publishes PurchaseFailed event
func (ep *EventPublisher) PublishPurchaseFailed(ctx context.Context, event *models.PurchaseFailedEvent) error {
	return ep.producer.PublishEvent(ctx, "trx-"+event.TrxID, event)
}

// PublishBalanceAdjusted publishes BalanceAdjusted event
func (ep *EventPublisher) PublishBalanceAdjusted(ctx context.Context, event *models.BalanceAdjustedEvent) error {
	return ep.producer.PublishEvent(ctx, "user-"+event.PhoneNumber, event)
}

// EventHandler routes consumed events to registered handlers
type EventHandler struct {
	onPurchaseCompleted func(context.Context, *models.PurchaseCompletedEvent) error
	onPurchaseFailed    func(context.Context, *models.PurchaseFailedEvent) error
	onBalanceAdjusted   func(context.Context, *models.BalanceAdjustedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnPurchaseCompleted registers a handler for PurchaseCompleted events
func (eh *EventHandler) OnPurchaseCompleted(handler func(context.Context, *models.PurchaseCompletedEvent) error) {
	eh.onPurchaseCompleted = handler
}

// OnPurchaseFailed registers a handler for PurchaseFailed events
func (eh *EventHandler) OnPurchaseFailed(handler func(context.Context, *models.PurchaseFailedEvent) error) {
	eh.onPurchaseFailed = handler
}

// OnBalanceAdjusted registers a handler for BalanceAdjusted events
func (eh *EventHandler) OnBalanceAdjusted(handler func(context.Context, *models.BalanceAdjustedEvent) error) {
	eh.onBalanceAdjusted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypePurchaseCompleted:
		if eh.onPurchaseCompleted != nil {
			var event models.PurchaseCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PurchaseCompleted event: %w", err)
			}
			return eh.onPurchaseCompleted(ctx, &event)
		}

	case models.EventTypePurchaseFailed:
		if eh.onPurchaseFailed != nil {
			var event models.PurchaseFailedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PurchaseFailed event: %w", err)
			}
			return eh.onPurchaseFailed(ctx, &event)
		}

	case models.EventTypeBalanceAdjusted:
		if eh.onBalanceAdjusted != nil {
			var event models.BalanceAdjustedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BalanceAdjusted event: %w", err)
			}
			return eh.onBalanceAdjusted(ctx, &event)
		}
	}

	return nil
}
