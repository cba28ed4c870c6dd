package billing

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const redacted = "[REDACTED]"

// Credential is a tenant's delegated provider credential.
type Credential struct {
	APIToken   string
	CustomerID string
}

func (c Credential) String() string {
	return fmt.Sprintf("billing.Credential{APIToken:%s CustomerID:%s}", redacted, c.CustomerID)
}

func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("api_token", redacted),
		slog.String("customer_id", c.CustomerID),
	)
}

// OneTimePassword is a provider-issued token good for a single call.
// It is safe for concurrent use; only the first Consume succeeds.
type OneTimePassword struct {
	mu    sync.Mutex
	value string
	used  bool
}

func NewOneTimePassword(value string) *OneTimePassword {
	return &OneTimePassword{value: value}
}

// Consume returns the token and clears it. Later calls return ErrOTPConsumed.
func (o *OneTimePassword) Consume() (string, error) {
	if o == nil {
		return "", ErrOTPConsumed
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.used {
		return "", ErrOTPConsumed
	}
	v := o.value
	o.value = ""
	o.used = true
	return v, nil
}

func (o *OneTimePassword) String() string       { return redacted }
func (o *OneTimePassword) LogValue() slog.Value { return slog.StringValue(redacted) }

// RecurringService is the provider's record of a subscription, fetched fresh
// for every resolution and never stored.
type RecurringService struct {
	ID              string
	ProductID       string
	Price           string
	RecurringType   string
	Status          string
	NextBillingDate time.Time
	MaskedCard      string
}

// Status is the outcome of resolving a tenant's subscription with the provider.
type Status struct {
	Active          bool
	NextBillingDate *time.Time
	// Service is nil when the provider listed no active recurring service.
	Service *RecurringService
}

// Snapshot is what PersistenceSink writes for a tenant.
type Snapshot struct {
	Active          bool
	NextBillingDate *time.Time
	CheckedAt       time.Time
}

// TenantState is the cached billing view of a tenant.
type TenantState struct {
	HasCredential   bool
	Active          bool
	NextBillingDate *time.Time
	LastCheckedAt   *time.Time
}

// CancelRequest identifies the recurring service whose auto-renewal is disabled.
type CancelRequest struct {
	SubscriptionID string
	CustomerID     string
}

// Result is the outcome of reconciling one tenant.
type Result struct {
	TenantID uuid.UUID
	Success  bool
	// Skipped marks tenants without a credential. They count neither as
	// success nor as failure.
	Skipped         bool
	Active          bool
	NextBillingDate *time.Time
	ErrorKind       ErrorKind
	Err             error
}

// BatchReport aggregates a ReconcileAll run.
type BatchReport struct {
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	Results    []Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// IsActive reports whether a subscription billing next on next is active at now.
// next is a calendar date; now is converted to loc before taking its date.
// A subscription billing today is not active.
func IsActive(next *time.Time, now time.Time, loc *time.Location) bool {
	if next == nil {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	today := civilDate(now.In(loc))
	return civilDate(*next).After(today)
}

// civilDate drops the clock and zone from t, keeping its calendar date as seen in t's location.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
