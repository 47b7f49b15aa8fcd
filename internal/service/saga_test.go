package service

import (
	"context"
	"testing"

	"dorbot/internal/gateway"
	"dorbot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPackage() models.Package {
	return models.Package{
		Code:      "vidio",
		PackageID: "XL_VIDIO_PREMIER_30D",
		Name:      "Paket Vidio Unlimited",
		Price:     4500,
		Cost:      4000,
		Active:    true,
	}
}

func TestSagaExecuteSuccess(t *testing.T) {
	users := newFakeUserStore()
	users.seed("6281712345678", 10000)
	trxs := newFakeTrxStore()
	gw := &fakePurchaseGateway{result: gateway.PurchaseResult{
		Result:        gateway.Result{Success: true, Message: "Paket berhasil dibeli"},
		HesdaTrxID:    "HSD-123",
		PaymentMethod: "DANA",
	}}

	saga := NewPurchaseSaga(NewBalanceLedger(users, nil), trxs, gw, nil)
	outcome, err := saga.Execute(context.Background(), PurchaseIntent{
		Buyer:        "6281712345678",
		TargetNumber: "6287812345678",
		Package:      testPackage(),
		AccessToken:  "token",
	})

	require.NoError(t, err)
	require.True(t, outcome.Success)
	assert.Equal(t, int64(5500), outcome.RemainingBalance)
	assert.Equal(t, "HSD-123", outcome.HesdaTrxID)
	assert.Equal(t, int64(5500), users.saldo("6281712345678"))
	assert.Equal(t, 1, users.totalTrx("6281712345678"))

	trx := trxs.get(outcome.TrxID)
	require.NotNil(t, trx)
	assert.Equal(t, models.TrxStatusSuccess, trx.Status)
	assert.Equal(t, "HSD-123", trx.HesdaTrxID)
	assert.Equal(t, "6287812345678", trx.TargetNumber)
	assert.Equal(t, int64(4500), trx.Amount)
}

func TestSagaExecuteGatewayRejectedRefunds(t *testing.T) {
	users := newFakeUserStore()
	users.seed("6281712345678", 10000)
	trxs := newFakeTrxStore()
	gw := &fakePurchaseGateway{result: gateway.PurchaseResult{
		Result: gateway.Result{Success: false, Message: "Paket tidak tersedia"},
	}}

	saga := NewPurchaseSaga(NewBalanceLedger(users, nil), trxs, gw, nil)
	outcome, err := saga.Execute(context.Background(), PurchaseIntent{
		Buyer:        "6281712345678",
		TargetNumber: "6287812345678",
		Package:      testPackage(),
		AccessToken:  "token",
	})

	require.NoError(t, err)
	require.False(t, outcome.Success)
	assert.Equal(t, "Paket tidak tersedia", outcome.Message)

	// The debit is compensated in full and the counter never moves.
	assert.Equal(t, int64(10000), users.saldo("6281712345678"))
	assert.Equal(t, 0, users.totalTrx("6281712345678"))

	trx := trxs.get(outcome.TrxID)
	require.NotNil(t, trx)
	assert.Equal(t, models.TrxStatusFailed, trx.Status)
	assert.Equal(t, "Paket tidak tersedia", trx.ErrorMessage)
}

func TestSagaExecuteInsufficientBalance(t *testing.T) {
	users := newFakeUserStore()
	users.seed("6281712345678", 1000)
	trxs := newFakeTrxStore()
	gw := &fakePurchaseGateway{result: gateway.PurchaseResult{
		Result: gateway.Result{Success: true},
	}}

	saga := NewPurchaseSaga(NewBalanceLedger(users, nil), trxs, gw, nil)
	outcome, err := saga.Execute(context.Background(), PurchaseIntent{
		Buyer:        "6281712345678",
		TargetNumber: "6287812345678",
		Package:      testPackage(),
	})

	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Nil(t, outcome)

	// No side effects at all: no debit, no record, no remote call.
	assert.Equal(t, int64(1000), users.saldo("6281712345678"))
	assert.Equal(t, 0, trxs.count())
	assert.Equal(t, 0, gw.calls)
}

func TestSagaExecuteUnregisteredBuyer(t *testing.T) {
	users := newFakeUserStore()
	trxs := newFakeTrxStore()
	gw := &fakePurchaseGateway{}

	saga := NewPurchaseSaga(NewBalanceLedger(users, nil), trxs, gw, nil)
	_, err := saga.Execute(context.Background(), PurchaseIntent{
		Buyer:        "6281712345678",
		TargetNumber: "6287812345678",
		Package:      testPackage(),
	})

	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 0, gw.calls)
}

func TestSagaExecuteRecordWriteFailureRefunds(t *testing.T) {
	users := newFakeUserStore()
	users.seed("6281712345678", 10000)
	trxs := newFakeTrxStore()
	trxs.createErr = assert.AnError
	gw := &fakePurchaseGateway{result: gateway.PurchaseResult{
		Result: gateway.Result{Success: true},
	}}

	saga := NewPurchaseSaga(NewBalanceLedger(users, nil), trxs, gw, nil)
	outcome, err := saga.Execute(context.Background(), PurchaseIntent{
		Buyer:        "6281712345678",
		TargetNumber: "6287812345678",
		Package:      testPackage(),
	})

	require.Error(t, err)
	assert.Nil(t, outcome)

	// Record creation failed before the remote call, so the debit was
	// refunded and nothing was bought.
	assert.Equal(t, int64(10000), users.saldo("6281712345678"))
	assert.Equal(t, 0, gw.calls)
}
