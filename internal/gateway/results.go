package gateway

// Result is the uniform outcome envelope every gateway call maps the
// remote response into. Message is always user-safe text; raw transport
// errors never leave this package.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// BalanceResult carries the reseller's own deposit balance.
type BalanceResult struct {
	Result
	Saldo int64 `json:"saldo"`
}

// SessionResult carries an access token for a target number. NeedOTP is
// set when no standing session exists and an OTP flow is required; that is
// not a hard failure.
type SessionResult struct {
	Result
	AccessToken string `json:"access_token,omitempty"`
	NeedOTP     bool   `json:"need_otp,omitempty"`
}

// OTPResult carries the authorization id of a dispatched OTP.
type OTPResult struct {
	Result
	AuthID   string `json:"auth_id,omitempty"`
	ResendIn int    `json:"can_resend_in,omitempty"`
}

// PurchaseResult carries the remote transaction outcome.
type PurchaseResult struct {
	Result
	HesdaTrxID    string `json:"trx_id,omitempty"`
	PackageName   string `json:"nama_paket,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// QuotaBenefit is one benefit line inside an active quota.
type QuotaBenefit struct {
	Name           string `json:"name"`
	Quota          string `json:"quota"`
	RemainingQuota string `json:"remaining_quota"`
}

// Quota is one active package on a target number.
type Quota struct {
	Name      string         `json:"name"`
	ExpiredAt string         `json:"expired_at"`
	Benefits  []QuotaBenefit `json:"benefits"`
}

// PackageDetailResult carries a target number's active quotas.
type PackageDetailResult struct {
	Result
	MSISDN string  `json:"msisdn,omitempty"`
	Quotas []Quota `json:"quotas,omitempty"`
}

// TrxStatusResult carries a remote transaction-status lookup.
type TrxStatusResult struct {
	Result
	TrxID         string `json:"trx_id,omitempty"`
	Status        string `json:"status,omitempty"`
	PackageName   string `json:"nama_paket,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}
