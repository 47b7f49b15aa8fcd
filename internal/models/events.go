package models

import "time"

// Event types
const (
	EventTypePurchaseCompleted = "PURCHASE_COMPLETED"
	EventTypePurchaseFailed    = "PURCHASE_FAILED"
	EventTypeBalanceAdjusted   = "BALANCE_ADJUSTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PurchaseCompletedEvent published after a purchase saga commits
type PurchaseCompletedEvent struct {
	BaseEvent
	TrxID        string `json:"trx_id"`
	PhoneNumber  string `json:"phone_number"`
	TargetNumber string `json:"target_number"`
	PackageName  string `json:"package_name"`
	Amount       int64  `json:"amount"`
	HesdaTrxID   string `json:"hesda_trx_id"`
}

// PurchaseFailedEvent published after a purchase saga compensates
type PurchaseFailedEvent struct {
	BaseEvent
	TrxID        string `json:"trx_id"`
	PhoneNumber  string `json:"phone_number"`
	TargetNumber string `json:"target_number"`
	PackageName  string `json:"package_name"`
	Amount       int64  `json:"amount"`
	Reason       string `json:"reason"`
}

// BalanceAdjustedEvent published on ledger adjustments
type BalanceAdjustedEvent struct {
	BaseEvent
	PhoneNumber string `json:"phone_number"`
	Mode        string `json:"mode"`
	Amount      int64  `json:"amount"`
	NewSaldo    int64  `json:"new_saldo"`
}
