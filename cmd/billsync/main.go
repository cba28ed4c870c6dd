// Command billsync runs the subscription reconciliation service: the periodic
// batch, the tenant billing API and the health and metrics endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/billsync/pkg/billing"
	"github.com/dmitrymomot/billsync/pkg/config"
	"github.com/dmitrymomot/billsync/pkg/httpserver"
	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/pg"
	"github.com/dmitrymomot/billsync/pkg/redis"
	"github.com/dmitrymomot/billsync/pkg/requestid"
	"github.com/dmitrymomot/billsync/pkg/retry"
	"github.com/dmitrymomot/billsync/pkg/scheduler"
	"github.com/dmitrymomot/billsync/pkg/secrets"
	"github.com/dmitrymomot/billsync/pkg/tenant"
	"github.com/dmitrymomot/billsync/svc/billingapi"
	"github.com/dmitrymomot/billsync/svc/tenantstore"
)

const (
	serviceName   = "billsync"
	reconcileJob  = "billing.reconcile_all"
	batchLockKey  = "reconcile_all"
	readinessWait = 3 * time.Second
)

type appConfig struct {
	Env          string `env:"APP_ENV" envDefault:"development"`
	TenantHeader string `env:"TENANT_HEADER" envDefault:"X-Tenant-ID"`

	Postgres  pg.Config
	Redis     redis.Config
	HTTP      httpserver.Config
	Provider  billing.ProviderConfig
	Reconcile billing.ReconcilerConfig
	Store     tenantstore.Config
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, serviceName),
		logger.WithContextExtractors(requestid.LoggerExtractor(), tenant.LoggerExtractor()),
	)
	slog.SetDefault(log)

	pool, err := pg.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, tenantstore.Migrations(), cfg.Postgres, log); err != nil {
		return err
	}

	key, err := secrets.ParseKey(cfg.Store.TokenKey)
	if err != nil {
		return err
	}
	sealer, err := secrets.NewSealer(key)
	if err != nil {
		return err
	}
	store := tenantstore.New(pool, sealer, tenantstore.WithLogger(log))

	loc, err := cfg.Provider.Location()
	if err != nil {
		return err
	}
	metrics := billing.MustNewMetrics(prometheus.DefaultRegisterer)
	client, err := billing.NewClient(cfg.Provider,
		billing.WithClientLogger(log),
		billing.WithClientMetrics(metrics),
	)
	if err != nil {
		return err
	}

	policy := billing.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Reconcile.MaxAttempts
	reconcilerOpts := []billing.ReconcilerOption{
		billing.WithLogger(log),
		billing.WithLocation(loc),
		billing.WithWorkers(cfg.Reconcile.Workers),
		billing.WithRetryPolicy(policy),
		billing.WithMetrics(metrics),
	}
	checks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool, cfg.Postgres)}}

	if cfg.Redis.Enabled() {
		rdb, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()

		locker := redis.NewLocker(rdb, serviceName+":lock:")
		reconcilerOpts = append(reconcilerOpts, billing.WithRunLock(batchLock(locker, cfg.Reconcile.LockTTL)))
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(rdb)})
	} else {
		log.WarnContext(ctx, "redis disabled, batch runs are only guarded within this process")
	}

	reconciler := billing.NewReconciler(store, client, client, store, reconcilerOpts...)
	gateway := billing.NewGateway(store, client, client, client, cfg.Provider.Links(),
		billing.WithGatewayLogger(log),
		billing.WithGatewayMetrics(metrics),
	)
	gate := billing.NewAccessGate(store, reconciler,
		billing.WithGateLogger(log),
		billing.WithGateLocation(loc),
		billing.WithMaxAge(cfg.Reconcile.GateMaxAge),
	)
	api := billingapi.New(reconciler, gateway,
		billingapi.WithLogger(log),
		billingapi.WithSignupURL(cfg.Provider.SignupURL),
		billingapi.WithGate(gate),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, requestid.Middleware)
	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(log, readinessWait, checks...))
	r.Handle("/metrics", promhttp.Handler())
	api.Register(r, tenant.Middleware(tenant.NewHeaderResolver(cfg.TenantHeader)))

	sched := scheduler.New(scheduler.WithLogger(log))
	if err := sched.AddJob(reconcileJob, scheduler.Every(cfg.Reconcile.Interval), func(ctx context.Context) error {
		_, err := reconciler.ReconcileAll(ctx)
		if errors.Is(err, billing.ErrBatchInProgress) {
			log.InfoContext(ctx, "reconciliation batch already running elsewhere", logger.Job(reconcileJob))
			return nil
		}
		return err
	}); err != nil {
		return err
	}

	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Start(gctx) })
	g.Go(func() error { return server.Run(gctx, r) })
	err = g.Wait()
	api.Wait()
	return err
}

// batchLock adapts a Redis lock to billing.LockFunc.
func batchLock(locker *redis.Locker, ttl time.Duration) billing.LockFunc {
	return func(ctx context.Context) (func(context.Context) error, error) {
		lock, err := retryAcquire(ctx, locker, ttl)
		if errors.Is(err, redis.ErrLockHeld) {
			return nil, billing.ErrBatchInProgress
		}
		if err != nil {
			return nil, err
		}
		return lock.Release, nil
	}
}

// retryAcquire rides out brief Redis hiccups. A held lock is final.
func retryAcquire(ctx context.Context, locker *redis.Locker, ttl time.Duration) (*redis.Lock, error) {
	var lock *redis.Lock
	err := retry.Do(ctx, retry.Policy{
		MaxAttempts: 3,
		Backoff:     retry.FixedBackoff{Interval: 200 * time.Millisecond},
		Retryable:   func(err error) bool { return !errors.Is(err, redis.ErrLockHeld) },
	}, func(int) error {
		var err error
		lock, err = locker.Acquire(ctx, batchLockKey, ttl)
		return err
	})
	return lock, err
}
