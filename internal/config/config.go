// Package config holds the payment and branding configuration consumed by
// the payment gateway adapter. Both are read-only inputs to the purchase
// flow; the admin surface is the only writer.
package config

// Supported provider account modes.
const (
	AccountSandbox = "sandbox"
	AccountLive    = "live"
)

// PaymentConfig carries provider credentials and the current checkout
// experience profile.
type PaymentConfig struct {
	ClientID               string `json:"clientId"`
	ClientSecret           string `json:"clientSecret"`
	AccountType            string `json:"accountType"`
	WebExperienceProfileID string `json:"webExperienceProfileId,omitempty"`
}

// BrandingConfig controls the externally hosted checkout experience and the
// portal's currency handling.
type BrandingConfig struct {
	OrganizationName string `json:"organizationName"`
	LogoURL          string `json:"logoUrl,omitempty"`
	LocaleCode       string `json:"localeCode"`
	CurrencyCode     string `json:"currencyCode"`
	// CurrencyDecimalDigits is the currency's native decimal precision.
	// Zero for currencies without subdivision, e.g. JPY and HUF.
	CurrencyDecimalDigits int `json:"currencyDecimalDigits"`
}

// PaymentRepository supplies the current payment configuration.
type PaymentRepository interface {
	Retrieve() (PaymentConfig, error)
	Update(cfg PaymentConfig) error
}

// BrandingRepository supplies the current branding configuration.
type BrandingRepository interface {
	Retrieve() (BrandingConfig, error)
	Update(cfg BrandingConfig) error
}
