package paypal

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yourorg/commerce-orchestrator/internal/config"
	"github.com/yourorg/commerce-orchestrator/internal/faults"
)

// ValidateConfiguration verifies required credential fields and the account
// mode, then performs a real credential exchange against the provider.
// Identity failures (bad client id/secret) are classified distinctly from
// connectivity failures so they alert an operator rather than the end user.
func (a *Adapter) ValidateConfiguration(ctx context.Context, cfg config.PaymentConfig) error {
	if cfg.ClientID == "" {
		return faults.New(faults.InvalidInput, "clientId is required")
	}
	if cfg.ClientSecret == "" {
		return faults.New(faults.InvalidInput, "clientSecret is required")
	}
	if cfg.AccountType != config.AccountSandbox && cfg.AccountType != config.AccountLive {
		return faults.New(faults.InvalidInput, "accountType must be %q or %q",
			config.AccountSandbox, config.AccountLive)
	}

	if _, _, err := a.exchangeToken(ctx, cfg); err != nil {
		var idErr *identityError
		if asIdentityError(err, &idErr) && idErr.invalidClient() {
			return faults.Wrap(faults.PaymentGatewayIdentityFailureDuringConfiguration, err,
				"provider rejected the configured credentials")
		}
		if faults.KindOf(err) == faults.PaymentGatewayFailure {
			return err
		}
		return faults.Wrap(faults.PaymentGatewayFailure, err, "credential exchange failed")
	}
	return nil
}

type wireWebProfile struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Presentation struct {
		BrandName  string `json:"brand_name"`
		LogoImage  string `json:"logo_image,omitempty"`
		LocaleCode string `json:"locale_code"`
	} `json:"presentation"`
	InputFields struct {
		AddressOverride int  `json:"address_override"`
		AllowNote       bool `json:"allow_note"`
		NoShipping      int  `json:"no_shipping"`
	} `json:"input_fields"`
	FlowConfig struct {
		LandingPageType string `json:"landing_page_type"`
	} `json:"flow_config"`
}

// CreateWebExperienceProfile creates a provider-hosted checkout experience
// profile from the current branding and best-effort deletes the profile it
// replaces. Profiles are immutable by id, so a leaked old profile is an
// orphan, not a correctness problem.
func (a *Adapter) CreateWebExperienceProfile(ctx context.Context, payCfg config.PaymentConfig, brandCfg config.BrandingConfig) (string, error) {
	token, _, err := a.exchangeToken(ctx, payCfg)
	if err != nil {
		var idErr *identityError
		if asIdentityError(err, &idErr) && idErr.invalidClient() {
			return "", faults.Wrap(faults.PaymentGatewayIdentityFailureDuringConfiguration, err,
				"provider rejected the configured credentials")
		}
		if faults.KindOf(err) == faults.PaymentGatewayFailure {
			return "", err
		}
		return "", faults.Wrap(faults.PaymentGatewayFailure, err, "credential exchange failed")
	}

	profile := wireWebProfile{Name: uuid.NewString()}
	profile.Presentation.BrandName = brandCfg.OrganizationName
	profile.Presentation.LogoImage = brandCfg.LogoURL
	profile.Presentation.LocaleCode = brandCfg.LocaleCode
	profile.InputFields.AddressOverride = 1
	profile.InputFields.NoShipping = 1
	profile.FlowConfig.LandingPageType = "billing"

	var created wireWebProfile
	if err := a.adminCall(ctx, payCfg, token, http.MethodPost,
		"/v1/payment-experience/web-profiles", profile, &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", faults.New(faults.PaymentGatewayFailure, "provider did not return a profile id")
	}

	if payCfg.WebExperienceProfileID != "" {
		if err := a.adminCall(ctx, payCfg, token, http.MethodDelete,
			"/v1/payment-experience/web-profiles/"+payCfg.WebExperienceProfileID, nil, nil); err != nil {
			log.Printf("paypal: best-effort delete of experience profile %s failed: %v",
				payCfg.WebExperienceProfileID, err)
		}
	}
	return created.ID, nil
}

// adminCall issues a request with an explicitly supplied token and config,
// bypassing the shared token cache; admin flows may validate credentials
// that are not the currently active configuration.
func (a *Adapter) adminCall(ctx context.Context, cfg config.PaymentConfig, token, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return faults.Wrap(faults.PaymentGatewayFailure, err, "encoding provider request")
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, a.resolveBaseURL(cfg)+path, body)
	if err != nil {
		return faults.Wrap(faults.PaymentGatewayFailure, err, "building provider request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return faults.Wrap(faults.PaymentGatewayFailure, err, "provider unreachable")
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return faults.Wrap(faults.PaymentGatewayFailure, err, "reading provider response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parsePaymentsError(respBody)
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return faults.Wrap(faults.PaymentGatewayFailure, err, "decoding provider response")
		}
	}
	return nil
}
