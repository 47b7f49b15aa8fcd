package bot

import (
	"sync"

	"dorbot/internal/models"
)

// Kind tags a conversation state with the flow step it represents.
type Kind string

const (
	KindSelectPackage       Kind = "select_package"
	KindWaitingTargetNumber Kind = "waiting_target_number"
	KindNeedOTPConfirm      Kind = "need_otp_confirm"
	KindWaitingOTP          Kind = "waiting_otp"
	KindSelectPaymentMethod Kind = "select_payment_method"
	KindConfirmPurchase     Kind = "confirm_purchase"
	KindCheckPackageNumber  Kind = "check_package_number"

	KindAddSaldoTarget     Kind = "add_saldo_target"
	KindAddSaldoAmount     Kind = "add_saldo_amount"
	KindAddSaldoConfirm    Kind = "add_saldo_confirm"
	KindDeleteSaldoTarget  Kind = "delete_saldo_target"
	KindDeleteSaldoAmount  Kind = "delete_saldo_amount"
	KindDeleteSaldoConfirm Kind = "delete_saldo_confirm"
)

// State is the tagged variant a sender's in-progress flow accumulates.
// Only the fields the current Kind needs are set. Package is a snapshot
// taken at selection time; later catalog edits do not affect a running
// flow.
type State struct {
	Kind Kind

	PackageCodes []string
	PackageCode  string
	Package      *models.Package

	TargetNumber  string
	AccessToken   string
	AuthID        string
	PaymentMethod string

	Amount         int64
	CurrentBalance int64
	NewBalance     int64
	Operation      string
}

// StateStore holds all in-flight conversation states, keyed by sender.
// It lives in process memory only: a restart drops in-flight flows, which
// is acceptable for short-lived conversational state (persisting partial
// purchase intent would carry stale tokens and prices).
type StateStore struct {
	mu     sync.Mutex
	states map[string]State
}

// NewStateStore creates a new state store
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]State)}
}

// Get returns the sender's current state, if any.
func (s *StateStore) Get(sender string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[sender]
	return st, ok
}

// Set stores the sender's state, overwriting any prior one.
func (s *StateStore) Set(sender string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sender] = st
}

// Clear drops the sender's state.
func (s *StateStore) Clear(sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sender)
}

// Len reports how many flows are in progress.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
