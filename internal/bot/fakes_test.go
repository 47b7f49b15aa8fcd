package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"dorbot/internal/gateway"
	"dorbot/internal/models"
	"dorbot/internal/service"
)

// fakeUsers is an in-memory service.UserStore.
type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*models.User)}
}

func (f *fakeUsers) seed(phone string, saldo int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[phone] = &models.User{PhoneNumber: phone, Saldo: saldo}
}

func (f *fakeUsers) saldo(phone string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[phone]; ok {
		return u.Saldo
	}
	return 0
}

func (f *fakeUsers) totalTrx(phone string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[phone]; ok {
		return u.TotalTrx
	}
	return 0
}

func (f *fakeUsers) GetUser(_ context.Context, phone string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[phone]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, phone string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[phone]; !ok {
		f.users[phone] = &models.User{PhoneNumber: phone}
	}
	copied := *f.users[phone]
	return &copied, nil
}

func (f *fakeUsers) AdjustSaldo(_ context.Context, phone string, amount int64, mode string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[phone]
	if !ok {
		return nil, errors.New("user not found")
	}
	switch mode {
	case service.AdjustAdd:
		u.Saldo += amount
	case service.AdjustSubtract:
		u.Saldo -= amount
	case service.AdjustSet:
		u.Saldo = amount
	default:
		return nil, errors.New("unknown adjust mode")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) IncrementUserTrx(_ context.Context, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[phone]; ok {
		u.TotalTrx++
	}
	return nil
}

func (f *fakeUsers) ListUsers(_ context.Context) (map[string]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*models.User, len(f.users))
	for phone, u := range f.users {
		copied := *u
		out[phone] = &copied
	}
	return out, nil
}

func (f *fakeUsers) TopUsersBySaldo(_ context.Context, limit int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakePackages is an in-memory service.PackageStore.
type fakePackages struct {
	mu   sync.Mutex
	pkgs []models.Package
}

func (f *fakePackages) ListPackages(_ context.Context) ([]models.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Package, len(f.pkgs))
	copy(out, f.pkgs)
	return out, nil
}

func (f *fakePackages) UpsertPackage(_ context.Context, pkg *models.Package) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.pkgs {
		if f.pkgs[i].Code == pkg.Code {
			f.pkgs[i] = *pkg
			return nil
		}
	}
	f.pkgs = append(f.pkgs, *pkg)
	return nil
}

func (f *fakePackages) DeletePackage(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.pkgs {
		if f.pkgs[i].Code == code {
			f.pkgs = append(f.pkgs[:i], f.pkgs[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakePackages) SetPackageActive(_ context.Context, code string, active bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.pkgs {
		if f.pkgs[i].Code == code {
			f.pkgs[i].Active = active
			return true, nil
		}
	}
	return false, nil
}

// fakeTrxs backs both the saga's writes and the dispatcher's reads.
type fakeTrxs struct {
	mu   sync.Mutex
	trxs []*models.Transaction
}

func (f *fakeTrxs) CreateTransaction(_ context.Context, trx *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *trx
	f.trxs = append(f.trxs, &copied)
	return nil
}

func (f *fakeTrxs) UpdateTransactionStatus(_ context.Context, trxID, status, hesdaTrxID, paymentMethod, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, trx := range f.trxs {
		if trx.TrxID == trxID {
			trx.Status = status
			if hesdaTrxID != "" {
				trx.HesdaTrxID = hesdaTrxID
			}
			if paymentMethod != "" {
				trx.PaymentMethod = paymentMethod
			}
			trx.ErrorMessage = errorMessage
			return nil
		}
	}
	return errors.New("transaction not found")
}

func (f *fakeTrxs) GetTransaction(_ context.Context, trxID string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, trx := range f.trxs {
		if trx.TrxID == trxID {
			copied := *trx
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeTrxs) GetUserTransactions(_ context.Context, phone string, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for i := len(f.trxs) - 1; i >= 0 && len(out) < limit; i-- {
		if f.trxs[i].PhoneNumber == phone {
			out = append(out, *f.trxs[i])
		}
	}
	return out, nil
}

func (f *fakeTrxs) GetTransactionsByStatus(_ context.Context, status string, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, trx := range f.trxs {
		if trx.Status == status && len(out) < limit {
			out = append(out, *trx)
		}
	}
	return out, nil
}

func (f *fakeTrxs) CountTransactionsByStatus(_ context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64)
	for _, trx := range f.trxs {
		out[trx.Status]++
	}
	return out, nil
}

// fakeGateway returns scripted reseller responses.
type fakeGateway struct {
	balance   gateway.BalanceResult
	session   gateway.SessionResult
	otp       gateway.OTPResult
	verify    gateway.SessionResult
	purchase  gateway.PurchaseResult
	detail    gateway.PackageDetailResult
	trxStatus gateway.TrxStatusResult

	otpCalls      int
	purchaseCalls int
}

func (f *fakeGateway) CheckBalance(_ context.Context) gateway.BalanceResult { return f.balance }

func (f *fakeGateway) GetAccessToken(_ context.Context, _ string) gateway.SessionResult {
	return f.session
}

func (f *fakeGateway) RequestOTP(_ context.Context, _ string) gateway.OTPResult {
	f.otpCalls++
	return f.otp
}

func (f *fakeGateway) VerifyOTP(_ context.Context, _, _, _ string) gateway.SessionResult {
	return f.verify
}

func (f *fakeGateway) Purchase(_ context.Context, _, _, _, _ string) gateway.PurchaseResult {
	f.purchaseCalls++
	return f.purchase
}

func (f *fakeGateway) CheckPackageDetail(_ context.Context, _, _ string) gateway.PackageDetailResult {
	return f.detail
}

func (f *fakeGateway) CheckTransactionStatus(_ context.Context, _ string) gateway.TrxStatusResult {
	return f.trxStatus
}

// recordingMessenger captures every outbound message.
type recordingMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

type sentMessage struct {
	recipient string
	text      string
}

func (m *recordingMessenger) Send(_ context.Context, recipient, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{recipient: recipient, text: text})
	return nil
}

func (m *recordingMessenger) failWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *recordingMessenger) last() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMessage{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *recordingMessenger) lastTo(recipient string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].recipient == recipient {
			return m.sent[i].text
		}
	}
	return ""
}

func (m *recordingMessenger) anyContains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.sent {
		if strings.Contains(msg.text, substr) {
			return true
		}
	}
	return false
}
