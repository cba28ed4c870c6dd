package billingapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/billsync/handler"
	"github.com/dmitrymomot/billsync/pkg/billing"
	"github.com/dmitrymomot/billsync/pkg/binder"
	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/tenant"
)

// Reconciler is the part of *billing.Reconciler the API uses.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (billing.BatchReport, error)
	ReconcileTenant(ctx context.Context, tenantID uuid.UUID) (billing.Result, error)
}

// Gateway is the part of *billing.Gateway the API uses.
type Gateway interface {
	Subscription(ctx context.Context, tenantID uuid.UUID) (*billing.Status, error)
	CardUpdateURL(ctx context.Context, tenantID uuid.UUID) (string, error)
	Cancel(ctx context.Context, tenantID uuid.UUID, subscriptionID string) error
	Restart(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// API serves billing routes.
type API struct {
	reconciler Reconciler
	gateway    Gateway
	logger     *slog.Logger
	gate       Gate
	signupURL  string
	errHandler handler.ErrorHandler[handler.Context]

	// background batches started by the internal trigger
	wg sync.WaitGroup
}

type Option func(*API)

func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithSignupURL sets where /billing/restart sends tenants that never
// connected a billing account.
func WithSignupURL(url string) Option {
	return func(a *API) {
		a.signupURL = url
	}
}

// WithGate enables GET /billing/access.
func WithGate(g Gate) Option {
	return func(a *API) {
		a.gate = g
	}
}

// New panics on nil collaborators.
func New(reconciler Reconciler, gateway Gateway, opts ...Option) *API {
	if reconciler == nil {
		panic("billingapi: reconciler cannot be nil")
	}
	if gateway == nil {
		panic("billingapi: gateway cannot be nil")
	}
	a := &API{
		reconciler: reconciler,
		gateway:    gateway,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.Component("billingapi"))
	a.errHandler = handler.NewErrorHandler(a.logger, Classify)
	return a
}

// Register mounts the routes on r. tenantAuth guards everything under /billing.
func (a *API) Register(r chi.Router, tenantAuth func(http.Handler) http.Handler) {
	r.Post("/internal/reconcile", wrap(a, a.triggerReconcile))

	r.Route("/billing", func(r chi.Router) {
		if tenantAuth != nil {
			r.Use(tenantAuth)
		}
		r.Post("/reconcile", wrap(a, a.reconcileTenant))
		r.Get("/subscription", wrap(a, a.subscription))
		r.Get("/card", wrap(a, a.cardUpdate))
		r.Post("/cancel", handler.Wrap(a.cancel,
			handler.WithBinders[handler.Context, cancelRequest](binder.JSON()),
			handler.WithErrorHandler[handler.Context, cancelRequest](a.errHandler),
		))
		r.Post("/restart", wrap(a, a.restart))
		if a.gate != nil {
			r.Get("/access", wrap(a, a.access))
		}
	})
}

// Wait blocks until background batches started through the API finish.
func (a *API) Wait() {
	a.wg.Wait()
}

func wrap(a *API, h handler.HandlerFunc[handler.Context, struct{}]) http.HandlerFunc {
	return handler.Wrap(h, handler.WithErrorHandler[handler.Context, struct{}](a.errHandler))
}

func (a *API) triggerReconcile(ctx handler.Context, _ struct{}) handler.Response {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		bg := context.WithoutCancel(ctx)
		if _, err := a.reconciler.ReconcileAll(bg); err != nil {
			level := slog.LevelError
			if errors.Is(err, billing.ErrBatchInProgress) {
				level = slog.LevelInfo
			}
			a.logger.Log(bg, level, "triggered reconciliation did not run",
				logger.ErrorKind(string(billing.KindOf(err))),
				logger.Error(err),
			)
		}
	}()
	return handler.JSON(map[string]string{"status": "accepted"}, handler.WithJSONStatus(http.StatusAccepted))
}

type reconcileResponse struct {
	Active          bool    `json:"active"`
	Skipped         bool    `json:"skipped"`
	NextBillingDate *string `json:"next_billing_date"`
}

func (a *API) reconcileTenant(ctx handler.Context, _ struct{}) handler.Response {
	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	res, err := a.reconciler.ReconcileTenant(ctx, id)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(reconcileResponse{
		Active:          res.Active,
		Skipped:         res.Skipped,
		NextBillingDate: formatDate(res.NextBillingDate),
	})
}

type subscriptionResponse struct {
	Active          bool    `json:"active"`
	SubscriptionID  string  `json:"subscription_id,omitempty"`
	Price           string  `json:"price,omitempty"`
	RecurringType   string  `json:"recurring_type,omitempty"`
	MaskedCard      string  `json:"masked_card,omitempty"`
	NextBillingDate *string `json:"next_billing_date"`
}

func (a *API) subscription(ctx handler.Context, _ struct{}) handler.Response {
	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	st, err := a.gateway.Subscription(ctx, id)
	if err != nil {
		return handler.Error(err)
	}
	resp := subscriptionResponse{
		Active:          st.Active,
		NextBillingDate: formatDate(st.NextBillingDate),
	}
	if svc := st.Service; svc != nil {
		resp.SubscriptionID = svc.ID
		resp.Price = svc.Price
		resp.RecurringType = svc.RecurringType
		resp.MaskedCard = svc.MaskedCard
	}
	return handler.JSON(resp)
}

func (a *API) cardUpdate(ctx handler.Context, _ struct{}) handler.Response {
	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	link, err := a.gateway.CardUpdateURL(ctx, id)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Redirect(link)
}

type cancelRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

func (a *API) cancel(ctx handler.Context, req cancelRequest) handler.Response {
	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	if err := a.gateway.Cancel(ctx, id, req.SubscriptionID); err != nil {
		return handler.Error(err)
	}
	return handler.JSON(map[string]string{"status": "cancel_requested"}, handler.WithJSONStatus(http.StatusAccepted))
}

func (a *API) restart(ctx handler.Context, _ struct{}) handler.Response {
	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	link, err := a.gateway.Restart(ctx, id)
	if errors.Is(err, billing.ErrRequiresOnboarding) && a.signupURL != "" {
		return handler.Redirect(a.signupURL)
	}
	if err != nil {
		return handler.Error(err)
	}
	return handler.Redirect(link)
}

func (a *API) access(ctx handler.Context, _ struct{}) handler.Response {
	id, ok := tenant.IDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	return handler.JSON(map[string]bool{"allowed": a.gate.Allow(ctx, id)})
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}
