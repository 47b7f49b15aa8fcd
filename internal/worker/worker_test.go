package worker

import (
	"context"
	"sync"
	"testing"

	"dorbot/internal/models"
	"dorbot/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryEventLog struct {
	mu        sync.Mutex
	processed map[string]string
}

func newMemoryEventLog() *memoryEventLog {
	return &memoryEventLog{processed: make(map[string]string)}
}

func (m *memoryEventLog) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.processed[eventID]
	return ok, nil
}

func (m *memoryEventLog) MarkEventProcessed(_ context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[eventID] = eventType
	return nil
}

type countingMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (c *countingMessenger) Send(_ context.Context, _, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func TestNotifierDeduplicatesRedeliveredEvents(t *testing.T) {
	log := newMemoryEventLog()
	messenger := &countingMessenger{}
	w := &NotifierWorker{
		events:      log,
		messenger:   messenger,
		ownerNumber: "6281700000001",
		logger:      util.NamedLogger("notifier-test"),
	}

	event := &models.PurchaseCompletedEvent{
		BaseEvent:   models.BaseEvent{EventID: "evt-1", EventType: models.EventTypePurchaseCompleted},
		TrxID:       "TRX-abc",
		PhoneNumber: "6281712345678",
		PackageName: "Paket Vidio Unlimited",
		Amount:      4500,
	}

	require.NoError(t, w.handlePurchaseCompleted(context.Background(), event))
	require.NoError(t, w.handlePurchaseCompleted(context.Background(), event))

	assert.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0], "TRX-abc")
}

func TestNotifierFailedPurchaseMessage(t *testing.T) {
	log := newMemoryEventLog()
	messenger := &countingMessenger{}
	w := &NotifierWorker{
		events:      log,
		messenger:   messenger,
		ownerNumber: "6281700000001",
		logger:      util.NamedLogger("notifier-test"),
	}

	event := &models.PurchaseFailedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-2", EventType: models.EventTypePurchaseFailed},
		TrxID:     "TRX-def",
		Reason:    "Stok habis",
	}

	require.NoError(t, w.handlePurchaseFailed(context.Background(), event))
	require.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0], "Transaksi Gagal")
	assert.Contains(t, messenger.sent[0], "Stok habis")
}
