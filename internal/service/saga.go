package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dorbot/internal/gateway"
	"dorbot/internal/models"
	"dorbot/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInsufficientBalance aborts a purchase before any side effect.
var ErrInsufficientBalance = errors.New("saldo tidak mencukupi")

// errPurchaseRejected marks a gateway-declined purchase inside the
// reserved-funds block so the helper refunds it.
var errPurchaseRejected = errors.New("purchase rejected by gateway")

// TransactionStore is the persistence surface for the transaction ledger.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, trx *models.Transaction) error
	UpdateTransactionStatus(ctx context.Context, trxID, status, hesdaTrxID, paymentMethod, errorMessage string) error
}

// PurchaseGateway is the single remote capability the saga needs.
type PurchaseGateway interface {
	Purchase(ctx context.Context, targetNumber, packageID, accessToken, paymentMethod string) gateway.PurchaseResult
}

// PurchasePublisher publishes saga audit events. May be nil.
type PurchasePublisher interface {
	PublishPurchaseCompleted(ctx context.Context, event *models.PurchaseCompletedEvent) error
	PublishPurchaseFailed(ctx context.Context, event *models.PurchaseFailedEvent) error
}

// PurchaseIntent is the snapshot a confirmed flow hands to the saga.
type PurchaseIntent struct {
	Buyer         string
	TargetNumber  string
	Package       models.Package
	AccessToken   string
	PaymentMethod string
}

// PurchaseOutcome reports a terminal saga result to the flow.
type PurchaseOutcome struct {
	Success          bool
	TrxID            string
	HesdaTrxID       string
	PackageName      string
	PaymentMethod    string
	RemainingBalance int64
	Message          string
}

// PurchaseSaga executes the debit, remote purchase, commit-or-refund
// transaction. Once Execute starts it always runs to a terminal outcome;
// there is no mid-saga cancellation.
type PurchaseSaga struct {
	ledger    *BalanceLedger
	trxs      TransactionStore
	gateway   PurchaseGateway
	publisher PurchasePublisher
	logger    *zap.Logger
}

// NewPurchaseSaga creates a new purchase saga
func NewPurchaseSaga(ledger *BalanceLedger, trxs TransactionStore, gw PurchaseGateway, publisher PurchasePublisher) *PurchaseSaga {
	return &PurchaseSaga{
		ledger:    ledger,
		trxs:      trxs,
		gateway:   gw,
		publisher: publisher,
		logger:    util.NamedLogger("saga"),
	}
}

func newTrxID() string {
	return fmt.Sprintf("TRX-%s", uuid.New().String()[:8])
}

// Execute runs the purchase saga. ErrInsufficientBalance means nothing was
// debited and no transaction record exists. Any other error, and any
// unsuccessful outcome, has already been compensated: the debit was
// credited back and the transaction record (if created) is FAILED.
func (s *PurchaseSaga) Execute(ctx context.Context, intent PurchaseIntent) (*PurchaseOutcome, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseSaga.Execute")
	defer span.End()

	util.PurchasesStartedTotal.Inc()
	price := intent.Package.Price

	// Re-read just before the debit; the sufficiency check at selection
	// time may be stale by now.
	user, err := s.ledger.Get(ctx, intent.Buyer)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if user == nil || user.Saldo < price {
		util.PurchasesFailedTotal.WithLabelValues("insufficient_balance").Inc()
		return nil, ErrInsufficientBalance
	}

	outcome := &PurchaseOutcome{
		TrxID:       newTrxID(),
		PackageName: intent.Package.Name,
	}
	recordCreated := false

	s.logger.Info("Purchase saga started",
		zap.String("trx_id", outcome.TrxID),
		zap.String("buyer", intent.Buyer),
		zap.String("target", intent.TargetNumber),
		zap.String("package", intent.Package.Code),
		zap.Int64("amount", price))

	err = s.withReservedFunds(ctx, intent.Buyer, price, func(ctx context.Context, balanceAfterDebit int64) error {
		trx := &models.Transaction{
			TrxID:         outcome.TrxID,
			PhoneNumber:   intent.Buyer,
			TargetNumber:  intent.TargetNumber,
			PackageName:   intent.Package.Name,
			PackageID:     intent.Package.PackageID,
			Amount:        price,
			Cost:          intent.Package.Cost,
			Status:        models.TrxStatusProcessing,
			PaymentMethod: intent.PaymentMethod,
		}
		if err := s.trxs.CreateTransaction(ctx, trx); err != nil {
			return fmt.Errorf("failed to create transaction record: %w", err)
		}
		recordCreated = true

		result := s.gateway.Purchase(ctx, intent.TargetNumber, intent.Package.PackageID, intent.AccessToken, intent.PaymentMethod)
		if !result.Success {
			reason := result.Message
			if reason == "" {
				reason = "Gagal membeli paket"
			}
			if err := s.trxs.UpdateTransactionStatus(ctx, outcome.TrxID, models.TrxStatusFailed, "", "", reason); err != nil {
				s.logger.Error("Failed to mark transaction FAILED",
					zap.String("trx_id", outcome.TrxID), zap.Error(err))
			}
			outcome.Message = reason
			return errPurchaseRejected
		}

		// The remote purchase is committed; funds are spent and must
		// never be refunded past this point, even if bookkeeping
		// writes below fail.
		if result.PackageName != "" {
			outcome.PackageName = result.PackageName
		}
		outcome.HesdaTrxID = result.HesdaTrxID
		outcome.PaymentMethod = result.PaymentMethod
		outcome.RemainingBalance = balanceAfterDebit
		outcome.Message = result.Message

		if err := s.trxs.UpdateTransactionStatus(ctx, outcome.TrxID, models.TrxStatusSuccess, result.HesdaTrxID, result.PaymentMethod, ""); err != nil {
			s.logger.Error("Failed to mark transaction SUCCESS, record stuck in PROCESSING",
				zap.String("trx_id", outcome.TrxID),
				zap.String("hesda_trx_id", result.HesdaTrxID),
				zap.Error(err))
		}
		if err := s.ledger.IncrementTrx(ctx, intent.Buyer); err != nil {
			s.logger.Error("Failed to increment user trx counter",
				zap.String("phone", intent.Buyer), zap.Error(err))
		}
		return nil
	})

	switch {
	case err == nil:
		outcome.Success = true
		util.PurchasesSucceededTotal.Inc()
		s.logger.Info("Purchase saga committed",
			zap.String("trx_id", outcome.TrxID),
			zap.String("hesda_trx_id", outcome.HesdaTrxID))
		s.publishCompleted(ctx, intent, outcome)
		return outcome, nil

	case errors.Is(err, errPurchaseRejected):
		util.PurchasesFailedTotal.WithLabelValues("gateway_rejected").Inc()
		s.logger.Warn("Purchase rejected, funds refunded",
			zap.String("trx_id", outcome.TrxID),
			zap.String("reason", outcome.Message))
		s.publishFailed(ctx, intent, outcome)
		return outcome, nil

	default:
		if recordCreated {
			if uerr := s.trxs.UpdateTransactionStatus(ctx, outcome.TrxID, models.TrxStatusFailed, "", "", err.Error()); uerr != nil {
				s.logger.Error("Failed to mark transaction FAILED after internal error",
					zap.String("trx_id", outcome.TrxID), zap.Error(uerr))
			}
		}
		util.PurchasesFailedTotal.WithLabelValues("internal_error").Inc()
		outcome.Message = err.Error()
		s.publishFailed(ctx, intent, outcome)
		return nil, err
	}
}

// withReservedFunds debits first, runs op with the post-debit balance, and
// credits the exact amount back when op fails. This is the structural
// guarantee that a transaction leaving PROCESSING is either
// debited-and-kept or debited-and-refunded.
func (s *PurchaseSaga) withReservedFunds(ctx context.Context, phoneNumber string, amount int64, op func(ctx context.Context, balanceAfterDebit int64) error) error {
	debited, err := s.ledger.Adjust(ctx, phoneNumber, amount, AdjustSubtract)
	if err != nil {
		return fmt.Errorf("failed to reserve funds: %w", err)
	}

	if err := op(ctx, debited.Saldo); err != nil {
		if _, rerr := s.ledger.Adjust(ctx, phoneNumber, amount, AdjustAdd); rerr != nil {
			// The user was debited and the credit-back did not land.
			// Nothing automatic can fix this; it needs an operator.
			util.RefundFailuresTotal.Inc()
			s.logger.Error("REFUND FAILED, user debited without compensation",
				zap.String("phone", phoneNumber),
				zap.Int64("amount", amount),
				zap.NamedError("op_error", err),
				zap.Error(rerr))
		} else {
			util.RefundsTotal.Inc()
		}
		return err
	}
	return nil
}

func (s *PurchaseSaga) publishCompleted(ctx context.Context, intent PurchaseIntent, outcome *PurchaseOutcome) {
	if s.publisher == nil {
		return
	}
	event := &models.PurchaseCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePurchaseCompleted,
			Timestamp: time.Now(),
		},
		TrxID:        outcome.TrxID,
		PhoneNumber:  intent.Buyer,
		TargetNumber: intent.TargetNumber,
		PackageName:  outcome.PackageName,
		Amount:       intent.Package.Price,
		HesdaTrxID:   outcome.HesdaTrxID,
	}
	if err := s.publisher.PublishPurchaseCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish PurchaseCompleted event", zap.Error(err))
	}
}

func (s *PurchaseSaga) publishFailed(ctx context.Context, intent PurchaseIntent, outcome *PurchaseOutcome) {
	if s.publisher == nil {
		return
	}
	event := &models.PurchaseFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePurchaseFailed,
			Timestamp: time.Now(),
		},
		TrxID:        outcome.TrxID,
		PhoneNumber:  intent.Buyer,
		TargetNumber: intent.TargetNumber,
		PackageName:  outcome.PackageName,
		Amount:       intent.Package.Price,
		Reason:       outcome.Message,
	}
	if err := s.publisher.PublishPurchaseFailed(ctx, event); err != nil {
		s.logger.Error("Failed to publish PurchaseFailed event", zap.Error(err))
	}
}
