package billing

import (
	"fmt"
	"time"
)

// ProviderConfig describes the billing provider's endpoints and the product
// offered at checkout.
type ProviderConfig struct {
	APIURL         string        `env:"BILLING_API_URL,required"`
	CheckoutURL    string        `env:"BILLING_CHECKOUT_URL,required"`
	TokenHeader    string        `env:"BILLING_TOKEN_HEADER" envDefault:"X-Api-Token"`
	OTPPath        string        `env:"BILLING_OTP_PATH" envDefault:"/api/v1/auth/otp"`
	ServicesPath   string        `env:"BILLING_SERVICES_PATH" envDefault:"/api/v1/recurring-services/active"`
	CancelPath     string        `env:"BILLING_CANCEL_PATH" envDefault:"/api/v1/recurring-services"`
	ProductID      string        `env:"BILLING_PRODUCT_ID,required"`
	Quantity       int           `env:"BILLING_PRODUCT_QUANTITY" envDefault:"1"`
	ReturnURL      string        `env:"BILLING_RETURN_URL,required"`
	SignupURL      string        `env:"BILLING_SIGNUP_URL"`
	RequestTimeout time.Duration `env:"BILLING_REQUEST_TIMEOUT" envDefault:"10s"`
	Timezone       string        `env:"BILLING_TIMEZONE" envDefault:"UTC"`
}

// Location resolves Timezone. An empty value means UTC.
func (c ProviderConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("billing: load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Links builds the redirect builder for this provider.
func (c ProviderConfig) Links() Links {
	return Links{
		CheckoutURL: c.CheckoutURL,
		ReturnURL:   c.ReturnURL,
		ProductID:   c.ProductID,
		Quantity:    c.Quantity,
	}
}

// ReconcilerConfig tunes the reconciliation engine.
type ReconcilerConfig struct {
	Workers     int           `env:"RECONCILE_WORKERS" envDefault:"8"`
	MaxAttempts int           `env:"RECONCILE_MAX_ATTEMPTS" envDefault:"2"`
	LockTTL     time.Duration `env:"RECONCILE_LOCK_TTL" envDefault:"30m"`
	Interval    time.Duration `env:"RECONCILE_SCHEDULE_INTERVAL" envDefault:"6h"`
	GateMaxAge  time.Duration `env:"BILLING_GATE_MAX_AGE" envDefault:"12h"`
}
