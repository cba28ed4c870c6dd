package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

const defaultGateMaxAge = 12 * time.Hour

// TenantReconciler refreshes a single tenant. *Reconciler implements it.
type TenantReconciler interface {
	ReconcileTenant(ctx context.Context, tenantID uuid.UUID) (Result, error)
}

// AccessGate decides whether a tenant may use paid features.
//
// It fails open on provider failures: access is granted and a warning is
// logged. Store errors, unknown tenants and tenants without a credential are
// denied.
type AccessGate struct {
	reader     StatusReader
	reconciler TenantReconciler
	logger     *slog.Logger
	now        func() time.Time
	loc        *time.Location
	maxAge     time.Duration
}

type GateOption func(*AccessGate)

func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *AccessGate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMaxAge sets how long a cached snapshot is trusted.
func WithMaxAge(d time.Duration) GateOption {
	return func(g *AccessGate) {
		if d > 0 {
			g.maxAge = d
		}
	}
}

func WithGateClock(now func() time.Time) GateOption {
	return func(g *AccessGate) {
		if now != nil {
			g.now = now
		}
	}
}

func WithGateLocation(loc *time.Location) GateOption {
	return func(g *AccessGate) {
		if loc != nil {
			g.loc = loc
		}
	}
}

// NewAccessGate panics if a collaborator is nil.
func NewAccessGate(reader StatusReader, reconciler TenantReconciler, opts ...GateOption) *AccessGate {
	if reader == nil {
		panic("billing: status reader cannot be nil")
	}
	if reconciler == nil {
		panic("billing: tenant reconciler cannot be nil")
	}
	g := &AccessGate{
		reader:     reader,
		reconciler: reconciler,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
		loc:        time.UTC,
		maxAge:     defaultGateMaxAge,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(logger.Component("billing.gate"))
	return g
}

// Allow reports whether tenantID has access to paid features.
func (g *AccessGate) Allow(ctx context.Context, tenantID uuid.UUID) bool {
	state, err := g.reader.GetState(ctx, tenantID)
	switch {
	case err != nil:
		if !errors.Is(err, ErrTenantNotFound) {
			g.logger.WarnContext(ctx, "billing state unavailable, denying access",
				logger.TenantID(tenantID), logger.Error(err))
		}
		return false
	case !state.HasCredential:
		return false
	}

	now := g.now()
	if state.LastCheckedAt != nil && now.Sub(*state.LastCheckedAt) < g.maxAge {
		return IsActive(state.NextBillingDate, now, g.loc)
	}

	res, err := g.reconciler.ReconcileTenant(ctx, tenantID)
	switch {
	case IsProviderFailure(err):
		g.logger.WarnContext(ctx, "billing provider unavailable, allowing access",
			logger.TenantID(tenantID),
			logger.ErrorKind(string(KindOf(err))),
			logger.Error(err),
		)
		return true
	case err != nil, res.Skipped:
		return false
	}
	return res.Active
}
