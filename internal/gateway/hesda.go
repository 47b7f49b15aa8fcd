package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dorbot/internal/util"

	"go.uber.org/zap"
)

// SessionStore persists standing reseller sessions per target number.
type SessionStore interface {
	SaveSession(ctx context.Context, phoneNumber, accessToken, authID string) error
	TouchSession(ctx context.Context, phoneNumber string) error
	DeleteSession(ctx context.Context, phoneNumber string) error
}

// SessionCache is the TTL-bounded fast path in front of the remote session
// check. May be nil; cache failures degrade to the remote call.
type SessionCache interface {
	CacheSessionToken(ctx context.Context, phoneNumber, accessToken string) error
	GetSessionToken(ctx context.Context, phoneNumber string) (string, error)
	DropSessionToken(ctx context.Context, phoneNumber string) error
}

// Client wraps the Hesda reseller HTTP API. Every call maps the remote
// response into a uniform success/message result and is logged with
// endpoint, method and correlation phone number.
type Client struct {
	baseURL  string
	storeKey string
	username string
	password string

	httpClient *http.Client
	sessions   SessionStore
	cache      SessionCache
	logger     *zap.Logger
}

// NewClient creates a new reseller API client
func NewClient(baseURL, storeKey, username, password string, timeout time.Duration, sessions SessionStore, cache SessionCache) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		storeKey:   storeKey,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		sessions:   sessions,
		cache:      cache,
		logger:     util.NamedLogger("hesda"),
	}
}

// apiResponse is the wire envelope every Hesda endpoint returns.
type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// doGet issues an authenticated GET with the store key and params as query
// parameters.
func (c *Client) doGet(ctx context.Context, endpoint, phone string, params url.Values) (*apiResponse, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("hesdastore", c.storeKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req, endpoint, http.MethodGet, phone)
}

// doPostForm issues an authenticated POST with a form-encoded body, the
// shape the OTP endpoints require.
func (c *Client) doPostForm(ctx context.Context, endpoint, phone string, form url.Values) (*apiResponse, error) {
	form.Set("hesdastore", c.storeKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, endpoint, http.MethodPost, phone)
}

func (c *Client) do(req *http.Request, endpoint, method, phone string) (*apiResponse, error) {
	req.SetBasicAuth(c.username, c.password)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	util.GatewayRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		util.GatewayRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		c.logger.Warn("API call failed",
			zap.String("endpoint", endpoint),
			zap.String("method", method),
			zap.String("phone", phone),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		util.GatewayRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, err
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		util.GatewayRequestsTotal.WithLabelValues(endpoint, "bad_response").Inc()
		c.logger.Warn("API returned unparseable body",
			zap.String("endpoint", endpoint),
			zap.String("method", method),
			zap.String("phone", phone),
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("unexpected response from %s: %w", endpoint, err)
	}

	outcome := "rejected"
	if parsed.Status {
		outcome = "ok"
	}
	util.GatewayRequestsTotal.WithLabelValues(endpoint, outcome).Inc()

	c.logger.Info("API call",
		zap.String("endpoint", endpoint),
		zap.String("method", method),
		zap.String("phone", phone),
		zap.Int("http_status", resp.StatusCode),
		zap.Bool("status", parsed.Status),
		zap.String("message", parsed.Message))

	return &parsed, nil
}

// CheckBalance queries the reseller's own deposit balance.
func (c *Client) CheckBalance(ctx context.Context) BalanceResult {
	ctx, span := util.StartSpan(ctx, "Hesda.CheckBalance")
	defer span.End()

	resp, err := c.doGet(ctx, "/saldo", "", nil)
	if err != nil {
		return BalanceResult{Result: Result{Message: "Gagal mengecek saldo sistem"}}
	}

	var data struct {
		Saldo int64 `json:"saldo"`
	}
	if !resp.Status || json.Unmarshal(resp.Data, &data) != nil {
		return BalanceResult{Result: Result{Message: "Gagal mengecek saldo sistem"}}
	}
	return BalanceResult{Result: Result{Success: true}, Saldo: data.Saldo}
}

// GetAccessToken resolves an access token for a target number: cached
// token first, then the remote session check. When the remote side reports
// no active session the result signals NeedOTP instead of a hard failure.
func (c *Client) GetAccessToken(ctx context.Context, targetNumber string) SessionResult {
	ctx, span := util.StartSpan(ctx, "Hesda.GetAccessToken")
	defer span.End()

	if c.cache != nil {
		token, err := c.cache.GetSessionToken(ctx, targetNumber)
		if err != nil {
			c.logger.Warn("Session cache read failed, falling back to remote check",
				zap.String("phone", targetNumber), zap.Error(err))
		} else if token != "" {
			if c.sessions != nil {
				_ = c.sessions.TouchSession(ctx, targetNumber)
			}
			return SessionResult{Result: Result{Success: true}, AccessToken: token}
		}
	}

	resp, err := c.doGet(ctx, "/cek_sesi_login", targetNumber, url.Values{"no_hp": {targetNumber}})
	if err != nil {
		return SessionResult{Result: Result{Message: "Gagal memeriksa sesi login"}}
	}

	if !resp.Status {
		return SessionResult{
			Result:  Result{Message: "Perlu verifikasi OTP untuk melanjutkan"},
			NeedOTP: true,
		}
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if json.Unmarshal(resp.Data, &data) != nil || data.AccessToken == "" {
		return SessionResult{Result: Result{Message: "Gagal memeriksa sesi login"}}
	}

	c.rememberSession(ctx, targetNumber, data.AccessToken, "")
	return SessionResult{Result: Result{Success: true}, AccessToken: data.AccessToken}
}

// RequestOTP asks the reseller to send an OTP to the target number.
func (c *Client) RequestOTP(ctx context.Context, targetNumber string) OTPResult {
	ctx, span := util.StartSpan(ctx, "Hesda.RequestOTP")
	defer span.End()

	resp, err := c.doPostForm(ctx, "/get_otp", targetNumber, url.Values{
		"no_hp":  {targetNumber},
		"metode": {"OTP"},
	})
	if err != nil {
		util.OtpRequestsTotal.WithLabelValues("error").Inc()
		return OTPResult{Result: Result{Message: "Gagal mengirim OTP"}}
	}
	if !resp.Status {
		util.OtpRequestsTotal.WithLabelValues("rejected").Inc()
		return OTPResult{Result: Result{Message: resp.Message}}
	}

	var data struct {
		AuthID   string `json:"auth_id"`
		ResendIn int    `json:"can_resend_in"`
	}
	if json.Unmarshal(resp.Data, &data) != nil || data.AuthID == "" {
		util.OtpRequestsTotal.WithLabelValues("error").Inc()
		return OTPResult{Result: Result{Message: "Gagal mengirim OTP"}}
	}

	util.OtpRequestsTotal.WithLabelValues("ok").Inc()
	return OTPResult{
		Result:   Result{Success: true, Message: resp.Message},
		AuthID:   data.AuthID,
		ResendIn: data.ResendIn,
	}
}

// VerifyOTP exchanges an OTP code for an access token and persists the
// resulting session.
func (c *Client) VerifyOTP(ctx context.Context, targetNumber, authID, code string) SessionResult {
	ctx, span := util.StartSpan(ctx, "Hesda.VerifyOTP")
	defer span.End()

	resp, err := c.doPostForm(ctx, "/login_sms", targetNumber, url.Values{
		"no_hp":    {targetNumber},
		"metode":   {"OTP"},
		"auth_id":  {authID},
		"kode_otp": {code},
	})
	if err != nil {
		return SessionResult{Result: Result{Message: "Gagal login dengan OTP"}}
	}
	if !resp.Status {
		return SessionResult{Result: Result{Message: resp.Message}}
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if json.Unmarshal(resp.Data, &data) != nil || data.AccessToken == "" {
		return SessionResult{Result: Result{Message: "Gagal login dengan OTP"}}
	}

	c.rememberSession(ctx, targetNumber, data.AccessToken, authID)
	return SessionResult{
		Result:      Result{Success: true, Message: resp.Message},
		AccessToken: data.AccessToken,
	}
}

// Purchase executes a package purchase against a standing session.
func (c *Client) Purchase(ctx context.Context, targetNumber, packageID, accessToken, paymentMethod string) PurchaseResult {
	ctx, span := util.StartSpan(ctx, "Hesda.Purchase")
	defer span.End()

	form := url.Values{
		"no_hp":        {targetNumber},
		"package_id":   {packageID},
		"access_token": {accessToken},
		"uri":          {"package_purchase_otp"},
	}
	if paymentMethod != "" {
		form.Set("payment_method", paymentMethod)
	}

	resp, err := c.doPostForm(ctx, "/beli/otp", targetNumber, form)
	if err != nil {
		return PurchaseResult{Result: Result{Message: "Gagal membeli paket"}}
	}
	if !resp.Status {
		// The standing token may have been invalidated remotely; drop
		// the cached copy so the next attempt re-checks the session.
		if c.cache != nil {
			_ = c.cache.DropSessionToken(ctx, targetNumber)
		}
		return PurchaseResult{Result: Result{Message: resp.Message}}
	}

	var data struct {
		TrxID        string `json:"trx_id"`
		PackageName  string `json:"nama_paket"`
		DeeplinkData struct {
			PaymentMethod string `json:"payment_method"`
		} `json:"deeplink_data"`
	}
	if json.Unmarshal(resp.Data, &data) != nil || data.TrxID == "" {
		return PurchaseResult{Result: Result{Message: "Gagal membeli paket"}}
	}

	resolvedMethod := data.DeeplinkData.PaymentMethod
	if resolvedMethod == "" {
		resolvedMethod = paymentMethod
	}
	return PurchaseResult{
		Result:        Result{Success: true, Message: resp.Message},
		HesdaTrxID:    data.TrxID,
		PackageName:   data.PackageName,
		PaymentMethod: resolvedMethod,
	}
}

// CheckPackageDetail lists the active quotas on a target number.
func (c *Client) CheckPackageDetail(ctx context.Context, targetNumber, accessToken string) PackageDetailResult {
	ctx, span := util.StartSpan(ctx, "Hesda.CheckPackageDetail")
	defer span.End()

	resp, err := c.doGet(ctx, "/detail_paket", targetNumber, url.Values{
		"access_token": {accessToken},
	})
	if err != nil {
		return PackageDetailResult{Result: Result{Message: "Gagal mengecek detail paket"}}
	}
	if !resp.Status {
		return PackageDetailResult{Result: Result{Message: resp.Message}}
	}

	var data struct {
		MSISDN string  `json:"msisdn"`
		Quotas []Quota `json:"quotas"`
	}
	if json.Unmarshal(resp.Data, &data) != nil {
		return PackageDetailResult{Result: Result{Message: "Gagal mengecek detail paket"}}
	}
	return PackageDetailResult{Result: Result{Success: true}, MSISDN: data.MSISDN, Quotas: data.Quotas}
}

// CheckTransactionStatus looks up a remote transaction by id.
func (c *Client) CheckTransactionStatus(ctx context.Context, hesdaTrxID string) TrxStatusResult {
	ctx, span := util.StartSpan(ctx, "Hesda.CheckTransactionStatus")
	defer span.End()

	resp, err := c.doGet(ctx, "/cekStatus", "", url.Values{"trx_id": {hesdaTrxID}})
	if err != nil {
		return TrxStatusResult{Result: Result{Message: "Gagal mengecek status transaksi"}}
	}
	if !resp.Status {
		return TrxStatusResult{Result: Result{Message: resp.Message}}
	}

	var data struct {
		TrxID         string `json:"trx_id"`
		Status        string `json:"status"`
		PackageName   string `json:"nama_paket"`
		PaymentMethod string `json:"payment_method"`
	}
	if json.Unmarshal(resp.Data, &data) != nil {
		return TrxStatusResult{Result: Result{Message: "Gagal mengecek status transaksi"}}
	}
	return TrxStatusResult{
		Result:        Result{Success: true},
		TrxID:         data.TrxID,
		Status:        data.Status,
		PackageName:   data.PackageName,
		PaymentMethod: data.PaymentMethod,
	}
}

// rememberSession persists a session record and primes the cache. Failures
// are logged only; a session we fail to remember just costs a future
// remote check.
func (c *Client) rememberSession(ctx context.Context, targetNumber, accessToken, authID string) {
	if c.sessions != nil {
		if err := c.sessions.SaveSession(ctx, targetNumber, accessToken, authID); err != nil {
			c.logger.Warn("Failed to persist session",
				zap.String("phone", targetNumber), zap.Error(err))
		}
	}
	if c.cache != nil {
		if err := c.cache.CacheSessionToken(ctx, targetNumber, accessToken); err != nil {
			c.logger.Warn("Failed to cache session token",
				zap.String("phone", targetNumber), zap.Error(err))
		}
	}
}
