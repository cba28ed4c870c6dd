package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/retry"
)

const (
	modeBatch  = "batch"
	modeSingle = "single"

	defaultWorkers = 8
)

// LockFunc acquires a lock spanning every process that runs batches.
// It returns ErrBatchInProgress when the lock is held elsewhere.
type LockFunc func(ctx context.Context) (unlock func(context.Context) error, err error)

// Reconciler brings cached subscription state in line with the provider.
type Reconciler struct {
	vault    TokenVault
	broker   OTPBroker
	resolver StatusResolver
	sink     PersistenceSink

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
	loc     *time.Location
	workers int
	policy  retry.Policy
	lock    LockFunc

	running atomic.Bool
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

func WithLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLocation sets the location whose calendar decides "today". Default UTC.
func WithLocation(loc *time.Location) ReconcilerOption {
	return func(r *Reconciler) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithWorkers bounds concurrent tenant pipelines in a batch.
func WithWorkers(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithRetryPolicy replaces the per-tenant retry policy. Every attempt mints
// a fresh OTP.
func WithRetryPolicy(p retry.Policy) ReconcilerOption {
	return func(r *Reconciler) {
		r.policy = p
	}
}

// WithRunLock guards ReconcileAll with a cross-process lock.
func WithRunLock(lock LockFunc) ReconcilerOption {
	return func(r *Reconciler) {
		r.lock = lock
	}
}

func WithMetrics(m *Metrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// DefaultRetryPolicy retries once, only when the provider is unavailable.
func DefaultRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 2,
		Backoff:     retry.DefaultBackoff(),
		Retryable: func(err error) bool {
			return errors.Is(err, ErrProviderUnavailable)
		},
	}
}

// NewReconciler panics if a collaborator is nil.
func NewReconciler(vault TokenVault, broker OTPBroker, resolver StatusResolver, sink PersistenceSink, opts ...ReconcilerOption) *Reconciler {
	if vault == nil {
		panic("billing: token vault cannot be nil")
	}
	if broker == nil {
		panic("billing: otp broker cannot be nil")
	}
	if resolver == nil {
		panic("billing: status resolver cannot be nil")
	}
	if sink == nil {
		panic("billing: persistence sink cannot be nil")
	}

	r := &Reconciler{
		vault:    vault,
		broker:   broker,
		resolver: resolver,
		sink:     sink,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		loc:      time.UTC,
		workers:  defaultWorkers,
		policy:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("billing.reconciler"))
	return r
}

// ReconcileAll refreshes every credentialed tenant. Per-tenant failures are
// recorded in the report and never abort the batch. It fails only when the
// tenant list cannot be read or another batch is running.
//
// Once started, the batch runs to completion even if ctx is cancelled.
func (r *Reconciler) ReconcileAll(ctx context.Context) (BatchReport, error) {
	if !r.running.CompareAndSwap(false, true) {
		return BatchReport{}, ErrBatchInProgress
	}
	defer r.running.Store(false)

	ctx = context.WithoutCancel(ctx)

	if r.lock != nil {
		unlock, err := r.lock(ctx)
		if err != nil {
			return BatchReport{}, err
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				r.logger.WarnContext(ctx, "failed to release batch lock", logger.Error(err))
			}
		}()
	}

	report := BatchReport{StartedAt: r.now()}

	ids, err := r.vault.ListCredentialedTenants(ctx)
	if err != nil {
		return report, fmt.Errorf("billing: list tenants: %w", err)
	}

	results := make([]Result, len(ids))
	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = r.safeReconcile(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	report.Total = len(ids)
	report.Results = results
	for _, res := range results {
		switch {
		case res.Skipped:
			report.Skipped++
		case res.Success:
			report.Succeeded++
		default:
			report.Failed++
			r.logger.ErrorContext(ctx, "tenant reconciliation failed",
				logger.TenantID(res.TenantID),
				logger.ErrorKind(string(res.ErrorKind)),
				logger.Error(res.Err),
			)
		}
		r.metrics.ObserveReconcile(modeBatch, res)
	}
	report.FinishedAt = r.now()
	r.metrics.ObserveBatch(report.FinishedAt.Sub(report.StartedAt))

	r.logger.InfoContext(ctx, "reconciliation batch finished",
		slog.Int("total", report.Total),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
		logger.Duration(report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// safeReconcile turns panics into failed results.
func (r *Reconciler) safeReconcile(ctx context.Context, id uuid.UUID) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("billing: reconcile panic: %v", p)
			res = Result{TenantID: id, ErrorKind: KindInternal, Err: err}
		}
	}()
	res, _ = r.reconcile(ctx, id)
	return res
}

// ReconcileTenant refreshes one tenant and returns the failure, if any.
// Tenants without a credential are skipped without contacting the provider.
func (r *Reconciler) ReconcileTenant(ctx context.Context, tenantID uuid.UUID) (Result, error) {
	res, err := r.reconcile(ctx, tenantID)
	r.metrics.ObserveReconcile(modeSingle, res)
	if err != nil {
		r.logger.WarnContext(ctx, "tenant reconciliation failed",
			logger.TenantID(tenantID),
			logger.ErrorKind(string(res.ErrorKind)),
			logger.Error(err),
		)
	}
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, tenantID uuid.UUID) (Result, error) {
	res := Result{TenantID: tenantID}
	fail := func(err error) (Result, error) {
		res.Err = err
		res.ErrorKind = KindOf(err)
		return res, err
	}

	cred, err := r.vault.GetCredential(ctx, tenantID)
	if errors.Is(err, ErrMissingCredential) {
		res.Skipped = true
		return res, nil
	}
	if err != nil {
		return fail(err)
	}

	var status *Status
	err = retry.Do(ctx, r.policy, func(attempt int) error {
		if attempt > 1 {
			r.logger.DebugContext(ctx, "retrying tenant reconciliation",
				logger.TenantID(tenantID), logger.Attempt(attempt))
		}
		otp, err := r.broker.Exchange(ctx, cred.APIToken)
		if err != nil {
			return err
		}
		status, err = r.resolver.Resolve(ctx, otp)
		return err
	})
	if err != nil {
		return fail(err)
	}

	checkedAt := r.now()
	snap := Snapshot{
		Active:          IsActive(status.NextBillingDate, checkedAt, r.loc),
		NextBillingDate: status.NextBillingDate,
		CheckedAt:       checkedAt,
	}
	if err := r.sink.Upsert(ctx, tenantID, snap); err != nil {
		return fail(err)
	}

	res.Success = true
	res.Active = snap.Active
	res.NextBillingDate = snap.NextBillingDate
	return res, nil
}
