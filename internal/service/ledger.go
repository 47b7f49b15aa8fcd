package service

import (
	"context"
	"fmt"
	"time"

	"dorbot/internal/models"
	"dorbot/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Adjust modes
const (
	AdjustAdd      = "add"
	AdjustSubtract = "subtract"
	AdjustSet      = "set"
)

// UserStore is the persistence surface the ledger needs.
type UserStore interface {
	GetUser(ctx context.Context, phoneNumber string) (*models.User, error)
	CreateUser(ctx context.Context, phoneNumber string) (*models.User, error)
	AdjustSaldo(ctx context.Context, phoneNumber string, amount int64, mode string) (*models.User, error)
	IncrementUserTrx(ctx context.Context, phoneNumber string) error
	ListUsers(ctx context.Context) (map[string]*models.User, error)
	TopUsersBySaldo(ctx context.Context, limit int) ([]models.User, error)
}

// BalancePublisher publishes ledger audit events. May be nil.
type BalancePublisher interface {
	PublishBalanceAdjusted(ctx context.Context, event *models.BalanceAdjustedEvent) error
}

// BalanceLedger owns user balances and their adjustment discipline.
// Subtract does not enforce non-negativity: the purchase saga performs a
// single sufficiency check and then commits the debit, so the invariant is
// the caller's. A subtract that lands negative is logged loudly.
type BalanceLedger struct {
	users     UserStore
	publisher BalancePublisher
	logger    *zap.Logger
}

// NewBalanceLedger creates a new balance ledger
func NewBalanceLedger(users UserStore, publisher BalancePublisher) *BalanceLedger {
	return &BalanceLedger{
		users:     users,
		publisher: publisher,
		logger:    util.NamedLogger("ledger"),
	}
}

// Get retrieves a user, nil when not registered.
func (l *BalanceLedger) Get(ctx context.Context, phoneNumber string) (*models.User, error) {
	return l.users.GetUser(ctx, phoneNumber)
}

// GetOrCreate retrieves a user, registering them with zero saldo on first
// contact.
func (l *BalanceLedger) GetOrCreate(ctx context.Context, phoneNumber string) (*models.User, error) {
	user, err := l.users.GetUser(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	user, err = l.users.CreateUser(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	l.logger.Info("User registered", zap.String("phone", phoneNumber))
	return user, nil
}

// Adjust applies a balance change and returns the updated user. The target
// user is registered first if needed so admin top-ups work for numbers
// that never messaged the bot.
func (l *BalanceLedger) Adjust(ctx context.Context, phoneNumber string, amount int64, mode string) (*models.User, error) {
	if _, err := l.GetOrCreate(ctx, phoneNumber); err != nil {
		return nil, err
	}

	user, err := l.users.AdjustSaldo(ctx, phoneNumber, amount, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust saldo: %w", err)
	}

	util.BalanceAdjustmentsTotal.WithLabelValues(mode).Inc()

	if mode == AdjustSubtract && user.Saldo < 0 {
		l.logger.Warn("Saldo went negative after subtract, caller skipped sufficiency check",
			zap.String("phone", phoneNumber),
			zap.Int64("amount", amount),
			zap.Int64("saldo", user.Saldo))
	}

	if l.publisher != nil {
		event := &models.BalanceAdjustedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeBalanceAdjusted,
				Timestamp: time.Now(),
			},
			PhoneNumber: phoneNumber,
			Mode:        mode,
			Amount:      amount,
			NewSaldo:    user.Saldo,
		}
		if err := l.publisher.PublishBalanceAdjusted(ctx, event); err != nil {
			l.logger.Error("Failed to publish BalanceAdjusted event", zap.Error(err))
		}
	}

	return user, nil
}

// IncrementTrx bumps a user's lifetime transaction counter.
func (l *BalanceLedger) IncrementTrx(ctx context.Context, phoneNumber string) error {
	return l.users.IncrementUserTrx(ctx, phoneNumber)
}

// ListAll retrieves every registered user keyed by phone number.
func (l *BalanceLedger) ListAll(ctx context.Context) (map[string]*models.User, error) {
	return l.users.ListUsers(ctx)
}

// TopBySaldo retrieves the highest-balance users.
func (l *BalanceLedger) TopBySaldo(ctx context.Context, limit int) ([]models.User, error) {
	return l.users.TopUsersBySaldo(ctx, limit)
}
