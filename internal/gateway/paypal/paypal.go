// Package paypal implements the payment gateway capability set against the
// PayPal REST v1 API. All provider-specific wire handling and error payload
// parsing stays inside this package; callers only ever observe the faults
// taxonomy.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yourorg/commerce-orchestrator/internal/circuitbreaker"
	"github.com/yourorg/commerce-orchestrator/internal/config"
	"github.com/yourorg/commerce-orchestrator/internal/faults"
)

const (
	sandboxAPIBaseURL = "https://api.sandbox.paypal.com"
	liveAPIBaseURL    = "https://api.paypal.com"

	breakerTarget = "paypal"

	defaultRetryAttempts = 2
	defaultRetryDelay    = 500 * time.Millisecond

	// tokenExpirySlack refreshes the cached access token this long before
	// the provider-reported expiry.
	tokenExpirySlack = 60 * time.Second

	errorMessagePrefix = "We are unable to process your payment - "
)

// Adapter talks to PayPal. One instance is shared across concurrent sagas;
// the cached access token is the only mutable state and is mutex-guarded.
type Adapter struct {
	httpClient  *http.Client
	baseURL     string // overrides mode-derived base URL when non-empty
	payments    config.PaymentRepository
	branding    config.BrandingRepository
	breaker     *circuitbreaker.CircuitBreaker
	description string

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewAdapter creates an Adapter. description is attached to checkout items
// and transactions as the payment description.
func NewAdapter(
	client *http.Client,
	payments config.PaymentRepository,
	branding config.BrandingRepository,
	breaker *circuitbreaker.CircuitBreaker,
	description string,
) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if payments == nil {
		panic("payment repository cannot be nil")
	}
	if branding == nil {
		panic("branding repository cannot be nil")
	}
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.Config{})
	}
	return &Adapter{
		httpClient:  client,
		payments:    payments,
		branding:    branding,
		breaker:     breaker,
		description: description,
	}
}

func (a *Adapter) resolveBaseURL(cfg config.PaymentConfig) string {
	if a.baseURL != "" {
		return a.baseURL
	}
	if cfg.AccountType == config.AccountLive {
		return liveAPIBaseURL
	}
	return sandboxAPIBaseURL
}

// identityError is the OAuth error payload from the token endpoint.
type identityError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *identityError) Error() string {
	return fmt.Sprintf("identity error %s: %s", e.Code, e.Description)
}

func (e *identityError) invalidClient() bool {
	return strings.EqualFold(e.Code, "invalid_client")
}

// exchangeToken performs the client-credentials exchange. Identity failures
// come back as *identityError so callers can classify them for their own
// context (configuration vs payment).
func (a *Adapter) exchangeToken(ctx context.Context, cfg config.PaymentConfig) (string, time.Duration, error) {
	if !a.breaker.Allow(breakerTarget) {
		return "", 0, faults.New(faults.PaymentGatewayFailure, "payment provider temporarily unavailable")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.resolveBaseURL(cfg)+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("paypal: building token request: %w", err)
	}
	req.SetBasicAuth(cfg.ClientID, cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.breaker.RecordFailure(breakerTarget)
		return "", 0, fmt.Errorf("paypal: token exchange: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		a.breaker.RecordFailure(breakerTarget)
		return "", 0, fmt.Errorf("paypal: reading token response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		a.breaker.RecordFailure(breakerTarget)
		return "", 0, fmt.Errorf("paypal: token endpoint returned HTTP %d", resp.StatusCode)
	}
	a.breaker.RecordSuccess(breakerTarget)

	if resp.StatusCode != http.StatusOK {
		var idErr identityError
		if json.Unmarshal(body, &idErr) == nil && idErr.Code != "" {
			return "", 0, &idErr
		}
		return "", 0, fmt.Errorf("paypal: token endpoint returned HTTP %d: %s", resp.StatusCode, body)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", 0, fmt.Errorf("paypal: decoding token response: %w", err)
	}
	return tok.AccessToken, time.Duration(tok.ExpiresIn) * time.Second, nil
}

// token returns the cached access token, refreshing it when missing or near
// expiry. Refresh is an idempotent read; the lock is held only around the
// cache and the exchange itself.
func (a *Adapter) token(ctx context.Context) (string, error) {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()

	if a.accessToken != "" && time.Now().Before(a.tokenExpiry) {
		return a.accessToken, nil
	}

	cfg, err := a.payments.Retrieve()
	if err != nil {
		return "", faults.Wrap(faults.PaymentGatewayFailure, err, "retrieving payment configuration")
	}
	tok, ttl, err := a.exchangeToken(ctx, cfg)
	if err != nil {
		var idErr *identityError
		if asIdentityError(err, &idErr) {
			// Typically a secret rotated at the provider without the portal
			// configuration being updated.
			return "", faults.Wrap(faults.PaymentGatewayIdentityFailureDuringPayment, err,
				"provider rejected the configured credentials")
		}
		if faults.KindOf(err) == faults.PaymentGatewayFailure {
			return "", err
		}
		return "", faults.Wrap(faults.PaymentGatewayFailure, err, "credential exchange failed")
	}
	slack := tokenExpirySlack
	if ttl <= 2*tokenExpirySlack {
		// Short-lived tokens keep a proportional slack so the cache still hits.
		slack = ttl / 4
	}
	a.accessToken = tok
	a.tokenExpiry = time.Now().Add(ttl - slack)
	return tok, nil
}

func asIdentityError(err error, target **identityError) bool {
	for err != nil {
		if idErr, ok := err.(*identityError); ok {
			*target = idErr
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// call performs an authenticated JSON request against the payments API,
// retrying transient provider errors and translating failures into faults.
// out may be nil when the response body is irrelevant.
func (a *Adapter) call(ctx context.Context, method, path string, payload, out any) error {
	if !a.breaker.Allow(breakerTarget) {
		return faults.New(faults.PaymentGatewayFailure, "payment provider temporarily unavailable")
	}

	token, err := a.token(ctx)
	if err != nil {
		return err
	}
	cfg, err := a.payments.Retrieve()
	if err != nil {
		return faults.Wrap(faults.PaymentGatewayFailure, err, "retrieving payment configuration")
	}

	var requestBody []byte
	if payload != nil {
		requestBody, err = json.Marshal(payload)
		if err != nil {
			return faults.Wrap(faults.PaymentGatewayFailure, err, "encoding provider request")
		}
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(defaultRetryDelay)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method,
			a.resolveBaseURL(cfg)+path, bytes.NewReader(requestBody))
		if reqErr != nil {
			return faults.Wrap(faults.PaymentGatewayFailure, reqErr, "building provider request")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		current, doErr := a.httpClient.Do(req)
		if doErr != nil {
			lastErr = doErr
			continue
		}
		if current.StatusCode == http.StatusTooManyRequests || current.StatusCode >= http.StatusInternalServerError {
			body, _ := io.ReadAll(current.Body)
			current.Body.Close()
			lastErr = fmt.Errorf("provider returned HTTP %d: %s", current.StatusCode, body)
			if attempt < defaultRetryAttempts {
				continue
			}
			a.breaker.RecordFailure(breakerTarget)
			return faults.Wrap(faults.PaymentGatewayFailure, lastErr, "provider call failed after retries")
		}
		resp = current
		break
	}
	if resp == nil {
		a.breaker.RecordFailure(breakerTarget)
		return faults.Wrap(faults.PaymentGatewayFailure, lastErr, "provider unreachable")
	}
	defer resp.Body.Close()
	a.breaker.RecordSuccess(breakerTarget)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return faults.Wrap(faults.PaymentGatewayFailure, err, "reading provider response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parsePaymentsError(body)
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return faults.Wrap(faults.PaymentGatewayFailure, err, "decoding provider response")
		}
	}
	return nil
}

// paymentsError is PayPal's structured error payload for payments calls.
type paymentsError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Field string `json:"field"`
		Issue string `json:"issue"`
	} `json:"details"`
}

// parsePaymentsError maps the provider's error payload onto the closed fault
// taxonomy, building an operator-readable detail string for card and
// validation declines.
func parsePaymentsError(body []byte) error {
	var pe paymentsError
	if err := json.Unmarshal(body, &pe); err != nil || (pe.Name == "" && pe.Message == "") {
		var idErr identityError
		if json.Unmarshal(body, &idErr) == nil && idErr.Code != "" {
			return faults.Wrap(faults.PaymentGatewayIdentityFailureDuringPayment, &idErr,
				"provider rejected the configured credentials")
		}
		return faults.New(faults.PaymentGatewayFailure, "provider returned an unrecognized error").
			WithDetail("ErrorMessage", string(body))
	}

	name := strings.ToUpper(pe.Name)
	if name == "" {
		return faults.New(faults.PaymentGatewayFailure, "provider error").
			WithDetail("ErrorMessage", errorMessagePrefix+pe.Message)
	}
	if strings.Contains(name, "UNKNOWN_ERROR") {
		return faults.New(faults.PaymentGatewayPaymentError, "provider could not process the payment")
	}

	var detail strings.Builder
	detail.WriteString(errorMessagePrefix)
	if strings.Contains(name, "VALIDATION") && len(pe.Details) > 0 {
		detail.WriteString("[")
		for i, d := range pe.Details {
			field := strings.ReplaceAll(d.Field, "payer.funding_instruments[0].", "")
			if i > 0 {
				detail.WriteString(", ")
			}
			fmt.Fprintf(&detail, "%s - %s", field, d.Issue)
		}
		detail.WriteString("]")
	} else {
		detail.WriteString(pe.Message)
	}
	return faults.New(faults.PaymentGatewayFailure, "provider rejected the request").
		WithDetail("ErrorMessage", detail.String())
}
