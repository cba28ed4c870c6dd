package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

// Gateway actions, used in logs and metrics.
const (
	actionCardUpdate   = "card_update"
	actionCancel       = "cancel"
	actionRestart      = "restart"
	actionSubscription = "subscription"
)

// Gateway runs user-triggered billing actions. It never writes local state;
// the next reconciliation picks up the effect of a cancel or a checkout.
type Gateway struct {
	vault     TokenVault
	broker    OTPBroker
	resolver  StatusResolver
	canceller RecurringCanceller
	links     Links

	logger  *slog.Logger
	metrics *Metrics
}

type GatewayOption func(*Gateway)

func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithGatewayMetrics(m *Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// NewGateway panics if a collaborator is nil.
func NewGateway(vault TokenVault, broker OTPBroker, resolver StatusResolver, canceller RecurringCanceller, links Links, opts ...GatewayOption) *Gateway {
	if vault == nil {
		panic("billing: token vault cannot be nil")
	}
	if broker == nil {
		panic("billing: otp broker cannot be nil")
	}
	if resolver == nil {
		panic("billing: status resolver cannot be nil")
	}
	if canceller == nil {
		panic("billing: recurring canceller cannot be nil")
	}

	g := &Gateway{
		vault:     vault,
		broker:    broker,
		resolver:  resolver,
		canceller: canceller,
		links:     links,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(logger.Component("billing.gateway"))
	return g
}

// Subscription returns the tenant's live subscription status.
func (g *Gateway) Subscription(ctx context.Context, tenantID uuid.UUID) (status *Status, err error) {
	defer g.observe(ctx, actionSubscription, tenantID, &err)

	cred, err := g.vault.GetCredential(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return g.resolve(ctx, cred)
}

// CardUpdateURL returns the provider page where the tenant replaces the card
// of its active subscription. It costs two OTPs: one to find the subscription
// and one embedded in the link.
func (g *Gateway) CardUpdateURL(ctx context.Context, tenantID uuid.UUID) (link string, err error) {
	defer g.observe(ctx, actionCardUpdate, tenantID, &err)

	cred, err := g.vault.GetCredential(ctx, tenantID)
	if err != nil {
		return "", err
	}
	status, err := g.resolve(ctx, cred)
	if err != nil {
		return "", err
	}
	if !status.Active || status.Service == nil {
		return "", ErrNoActiveSubscription
	}

	otp, err := g.broker.Exchange(ctx, cred.APIToken)
	if err != nil {
		return "", err
	}
	token, err := otp.Consume()
	if err != nil {
		return "", err
	}
	return g.links.CardUpdate(status.Service.ID, token), nil
}

// Cancel disables auto-renewal of subscriptionID. A blank id fails with
// ErrNoActiveSubscription before contacting the provider.
func (g *Gateway) Cancel(ctx context.Context, tenantID uuid.UUID, subscriptionID string) (err error) {
	defer g.observe(ctx, actionCancel, tenantID, &err)

	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return ErrNoActiveSubscription
	}

	cred, err := g.vault.GetCredential(ctx, tenantID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cred.CustomerID) == "" {
		return fmt.Errorf("%w: customer id", ErrMissingCredential)
	}
	otp, err := g.broker.Exchange(ctx, cred.APIToken)
	if err != nil {
		return err
	}
	return g.canceller.DisableAutoRenew(ctx, otp, CancelRequest{
		SubscriptionID: subscriptionID,
		CustomerID:     cred.CustomerID,
	})
}

// Restart returns a checkout link for the configured product. Tenants without
// a credential get ErrRequiresOnboarding.
func (g *Gateway) Restart(ctx context.Context, tenantID uuid.UUID) (link string, err error) {
	defer g.observe(ctx, actionRestart, tenantID, &err)

	cred, err := g.vault.GetCredential(ctx, tenantID)
	if errors.Is(err, ErrMissingCredential) {
		return "", errors.Join(ErrRequiresOnboarding, err)
	}
	if err != nil {
		return "", err
	}

	otp, err := g.broker.Exchange(ctx, cred.APIToken)
	if err != nil {
		return "", err
	}
	token, err := otp.Consume()
	if err != nil {
		return "", err
	}
	return g.links.Checkout(token), nil
}

func (g *Gateway) resolve(ctx context.Context, cred Credential) (*Status, error) {
	otp, err := g.broker.Exchange(ctx, cred.APIToken)
	if err != nil {
		return nil, err
	}
	return g.resolver.Resolve(ctx, otp)
}

func (g *Gateway) observe(ctx context.Context, action string, tenantID uuid.UUID, errp *error) {
	err := *errp
	g.metrics.ObserveGatewayAction(action, err)
	if err == nil {
		g.logger.InfoContext(ctx, "billing action completed",
			logger.Operation(action), logger.TenantID(tenantID))
		return
	}
	g.logger.WarnContext(ctx, "billing action failed",
		logger.Operation(action),
		logger.TenantID(tenantID),
		logger.ErrorKind(string(KindOf(err))),
		logger.Error(err),
	)
}
