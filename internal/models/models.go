package models

import (
	"strings"
	"time"
)

// User is a chat contact with an internal saldo balance. Users are created
// on first contact and never deleted.
type User struct {
	PhoneNumber  string    `db:"phone_number" json:"phone_number"`
	Saldo        int64     `db:"saldo" json:"saldo"`
	TotalTrx     int       `db:"total_trx" json:"total_trx"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
	LastActivity time.Time `db:"last_activity" json:"last_activity"`
}

// Package is a sellable data package. The catalog merges a static default
// set with operator-stored overrides; overrides win by code.
type Package struct {
	Code           string    `db:"code" json:"code"`
	PackageID      string    `db:"package_id" json:"package_id"`
	Name           string    `db:"name" json:"name"`
	Price          int64     `db:"price" json:"price"`
	Cost           int64     `db:"cost" json:"cost"`
	Description    string    `db:"description" json:"description"`
	PaymentMethods string    `db:"payment_methods" json:"payment_methods"`
	Active         bool      `db:"active" json:"active"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PaymentMethodList splits the stored comma list. An empty list means the
// package needs no payment-method selection.
func (p *Package) PaymentMethodList() []string {
	if strings.TrimSpace(p.PaymentMethods) == "" {
		return nil
	}
	var out []string
	for _, m := range strings.Split(p.PaymentMethods, ",") {
		if v := strings.TrimSpace(m); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Transaction is the audit record of one purchase attempt. Created in
// PROCESSING at the funds-reservation point; the terminal status is set
// exactly once and records are never deleted.
type Transaction struct {
	TrxID         string    `db:"trx_id" json:"trx_id"`
	PhoneNumber   string    `db:"phone_number" json:"phone_number"`
	TargetNumber  string    `db:"target_number" json:"target_number"`
	PackageName   string    `db:"package_name" json:"package_name"`
	PackageID     string    `db:"package_id" json:"package_id"`
	Amount        int64     `db:"amount" json:"amount"`
	Cost          int64     `db:"cost" json:"cost"`
	Status        string    `db:"status" json:"status"`
	HesdaTrxID    string    `db:"hesda_trx_id" json:"hesda_trx_id,omitempty"`
	PaymentMethod string    `db:"payment_method" json:"payment_method,omitempty"`
	ErrorMessage  string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Session is a standing reseller authorization for a target number,
// reusable until the remote side invalidates it.
type Session struct {
	PhoneNumber string    `db:"phone_number" json:"phone_number"`
	AccessToken string    `db:"access_token" json:"access_token"`
	AuthID      string    `db:"auth_id" json:"auth_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastUsed    time.Time `db:"last_used" json:"last_used"`
}

// Transaction statuses
const (
	TrxStatusProcessing = "PROCESSING"
	TrxStatusSuccess    = "SUCCESS"
	TrxStatusFailed     = "FAILED"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
