package service

import (
	"context"
	"errors"
	"sync"

	"dorbot/internal/gateway"
	"dorbot/internal/models"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	getErr  error
	adjErr  error
	listErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) seed(phone string, saldo int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[phone] = &models.User{PhoneNumber: phone, Saldo: saldo}
}

func (f *fakeUserStore) totalTrx(phone string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[phone]; ok {
		return u.TotalTrx
	}
	return 0
}

func (f *fakeUserStore) saldo(phone string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[phone]; ok {
		return u.Saldo
	}
	return 0
}

func (f *fakeUserStore) GetUser(_ context.Context, phone string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[phone]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, phone string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[phone]; !ok {
		f.users[phone] = &models.User{PhoneNumber: phone}
	}
	copied := *f.users[phone]
	return &copied, nil
}

func (f *fakeUserStore) AdjustSaldo(_ context.Context, phone string, amount int64, mode string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.adjErr != nil {
		return nil, f.adjErr
	}
	u, ok := f.users[phone]
	if !ok {
		return nil, errors.New("user not found")
	}
	switch mode {
	case AdjustAdd:
		u.Saldo += amount
	case AdjustSubtract:
		u.Saldo -= amount
	case AdjustSet:
		u.Saldo = amount
	default:
		return nil, errors.New("unknown adjust mode")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) IncrementUserTrx(_ context.Context, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[phone]; ok {
		u.TotalTrx++
	}
	return nil
}

func (f *fakeUserStore) ListUsers(_ context.Context) (map[string]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make(map[string]*models.User, len(f.users))
	for phone, u := range f.users {
		copied := *u
		out[phone] = &copied
	}
	return out, nil
}

func (f *fakeUserStore) TopUsersBySaldo(_ context.Context, limit int) ([]models.User, error) {
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

// fakeTrxStore records transaction writes.
type fakeTrxStore struct {
	mu        sync.Mutex
	trxs      map[string]*models.Transaction
	createErr error
}

func newFakeTrxStore() *fakeTrxStore {
	return &fakeTrxStore{trxs: make(map[string]*models.Transaction)}
}

func (f *fakeTrxStore) get(trxID string) *models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trxs[trxID]
}

func (f *fakeTrxStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.trxs)
}

func (f *fakeTrxStore) CreateTransaction(_ context.Context, trx *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *trx
	f.trxs[trx.TrxID] = &copied
	return nil
}

func (f *fakeTrxStore) UpdateTransactionStatus(_ context.Context, trxID, status, hesdaTrxID, paymentMethod, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trx, ok := f.trxs[trxID]
	if !ok {
		return errors.New("transaction not found")
	}
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

// fakePurchaseGateway returns a scripted purchase result.
type fakePurchaseGateway struct {
	result gateway.PurchaseResult
	calls  int
}

func (f *fakePurchaseGateway) Purchase(_ context.Context, _, _, _, _ string) gateway.PurchaseResult {
	f.calls++
	return f.result
}

// fakePackageStore is an in-memory PackageStore.
type fakePackageStore struct {
	mu      sync.Mutex
	pkgs    []models.Package
	listErr error
}

func (f *fakePackageStore) ListPackages(_ context.Context) ([]models.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Package, len(f.pkgs))
	copy(out, f.pkgs)
	return out, nil
}

func (f *fakePackageStore) UpsertPackage(_ context.Context, pkg *models.Package) error {
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

func (f *fakePackageStore) DeletePackage(_ context.Context, code string) error {
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

func (f *fakePackageStore) SetPackageActive(_ context.Context, code string, active bool) (bool, error) {
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
