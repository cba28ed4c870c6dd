package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

const maxResponseSize = 1 << 20

// Provider operations, used in logs and metrics.
const (
	opExchange = "otp_exchange"
	opResolve  = "resolve_status"
	opCancel   = "disable_auto_renew"
)

// Client talks to the billing provider's REST API. It implements OTPBroker,
// StatusResolver and RecurringCanceller. Every call is bounded by the
// configured request timeout and is never retried here.
type Client struct {
	apiURL      *url.URL
	tokenHeader string
	otpPath     string
	servicesURL string
	cancelPath  string
	timeout     time.Duration
	loc         *time.Location

	http    *http.Client
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the base HTTP client. Bearer calls wrap its transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithClientMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClientClock overrides the clock used to derive Status.Active.
func WithClientClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient validates cfg and builds a provider client.
func NewClient(cfg ProviderConfig, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.APIURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("billing: invalid provider api url %q", cfg.APIURL)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	c := &Client{
		apiURL:      base,
		tokenHeader: cfg.TokenHeader,
		otpPath:     cfg.OTPPath,
		cancelPath:  cfg.CancelPath,
		timeout:     cfg.RequestTimeout,
		loc:         loc,
		http:        &http.Client{},
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
	}
	c.servicesURL = c.endpoint(cfg.ServicesPath)
	if c.tokenHeader == "" {
		c.tokenHeader = "X-Api-Token"
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("billing.client"))
	return c, nil
}

type otpResponse struct {
	OTP  flexString `json:"otp"`
	Data *struct {
		OTP flexString `json:"otp"`
	} `json:"data"`
}

// Exchange trades a delegated API token for a one-time password.
func (c *Client) Exchange(ctx context.Context, apiToken string) (*OneTimePassword, error) {
	if strings.TrimSpace(apiToken) == "" {
		return nil, ErrMissingCredential
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint(c.otpPath), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(c.tokenHeader, apiToken)

	var out otpResponse
	if err := c.do(c.http, opExchange, req, &out); err != nil {
		return nil, err
	}

	otp := strings.TrimSpace(string(out.OTP))
	if otp == "" && out.Data != nil {
		otp = strings.TrimSpace(string(out.Data.OTP))
	}
	if otp == "" {
		return nil, fmt.Errorf("%w: otp missing", ErrMalformedResponse)
	}
	return NewOneTimePassword(otp), nil
}

type servicesResponse struct {
	Data *struct {
		RecurringServices []recurringServiceDTO `json:"recurring_services"`
	} `json:"data"`
}

type recurringServiceDTO struct {
	ID                       flexString `json:"id"`
	ProductID                flexString `json:"product_id"`
	Price                    flexString `json:"price"`
	NextRecurringBillingDate flexString `json:"next_recurring_billing_date"`
	CardNumber               flexString `json:"card_number"`
	Status                   flexString `json:"status"`
	RecurringType            flexString `json:"recurring_type"`
}

// Resolve consumes otp and fetches the tenant's active recurring services.
// An empty listing means no active subscription. Only the first service is
// considered.
func (c *Client) Resolve(ctx context.Context, otp *OneTimePassword) (*Status, error) {
	token, err := otp.Consume()
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.servicesURL, nil)
	if err != nil {
		return nil, err
	}

	var out servicesResponse
	if err := c.do(c.bearer(ctx, token), opResolve, req, &out); err != nil {
		return nil, err
	}

	if out.Data == nil || len(out.Data.RecurringServices) == 0 {
		return &Status{}, nil
	}
	if n := len(out.Data.RecurringServices); n > 1 {
		c.logger.WarnContext(ctx, "multiple active recurring services", slog.Int("count", n))
	}

	svc, err := out.Data.RecurringServices[0].toService()
	if err != nil {
		return nil, err
	}
	next := svc.NextBillingDate
	return &Status{
		Active:          IsActive(&next, c.now(), c.loc),
		NextBillingDate: &next,
		Service:         svc,
	}, nil
}

func (d recurringServiceDTO) toService() (*RecurringService, error) {
	id := strings.TrimSpace(string(d.ID))
	if id == "" {
		return nil, fmt.Errorf("%w: recurring service without id", ErrMalformedResponse)
	}
	next, err := parseBillingDate(string(d.NextRecurringBillingDate))
	if err != nil {
		return nil, err
	}
	return &RecurringService{
		ID:              id,
		ProductID:       string(d.ProductID),
		Price:           string(d.Price),
		RecurringType:   string(d.RecurringType),
		Status:          string(d.Status),
		NextBillingDate: next,
		MaskedCard:      maskCard(string(d.CardNumber)),
	}, nil
}

type cancelBody struct {
	ID          string `json:"id"`
	CustomerID  string `json:"customer_id"`
	IsRecurring int    `json:"is_recurring"`
}

type ackResponse struct {
	Success flexBool   `json:"success"`
	Status  flexString `json:"status"`
}

// DisableAutoRenew consumes otp and turns off auto-renewal for a recurring service.
func (c *Client) DisableAutoRenew(ctx context.Context, otp *OneTimePassword, cr CancelRequest) error {
	if strings.TrimSpace(cr.SubscriptionID) == "" {
		return ErrNoActiveSubscription
	}
	if strings.TrimSpace(cr.CustomerID) == "" {
		return fmt.Errorf("%w: customer id", ErrMissingCredential)
	}
	token, err := otp.Consume()
	if err != nil {
		return err
	}

	body, err := json.Marshal(cancelBody{ID: cr.SubscriptionID, CustomerID: cr.CustomerID})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPut, c.endpoint(c.cancelPath), body)
	if err != nil {
		return err
	}

	var raw json.RawMessage
	if err := c.do(c.bearer(ctx, token), opCancel, req, &raw); err != nil {
		return err
	}
	var ack ackResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ack); err != nil {
			// Only an explicit failure flag rejects the action.
			ack = ackResponse{}
		}
	}
	if ack.Success.set && !ack.Success.value {
		return ErrProviderRejected
	}
	switch strings.ToLower(string(ack.Status)) {
	case "failed", "fail", "error":
		return ErrProviderRejected
	}
	return nil
}

// bearer returns an HTTP client that sends token as a bearer credential over
// the base client's transport.
func (c *Client) bearer(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

func (c *Client) endpoint(path string) string {
	return c.apiURL.JoinPath(path).String()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return nil, fmt.Errorf("billing: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends req under the request timeout and decodes a 2xx JSON body into out.
// A 2xx response with an empty body leaves out untouched only for the cancel
// acknowledgement.
func (c *Client) do(hc *http.Client, op string, req *http.Request, out any) (err error) {
	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()
	req = req.WithContext(ctx)

	start := time.Now()
	defer func() {
		c.metrics.ObserveProviderRequest(op, err, time.Since(start))
		if err != nil {
			c.logger.DebugContext(ctx, "provider request failed",
				logger.Operation(op),
				logger.ErrorKind(string(KindOf(err))),
				logger.Duration(time.Since(start)),
			)
		}
	}()

	resp, err := hc.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return transportError(ctx, err)
	}

	if err := statusError(op, resp.StatusCode); err != nil {
		return err
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		if op == opCancel {
			return nil
		}
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if op == opCancel {
			return nil
		}
		return errors.Join(ErrMalformedResponse, err)
	}
	return nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutError(err)
	}
	return errors.Join(ErrProviderUnavailable, err)
}

func statusError(op string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthRejected, code)
	case code >= 500,
		code == http.StatusRequestTimeout,
		code == http.StatusTooEarly,
		code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, code)
	case op == opExchange:
		// Credential problems surface as 401/403; other 4xx point at the endpoint.
		return fmt.Errorf("%w: otp exchange status %d", ErrMalformedResponse, code)
	default:
		return fmt.Errorf("%w: status %d", ErrProviderRejected, code)
	}
}

var billingDateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
}

// parseBillingDate returns the calendar date of s at midnight UTC.
func parseBillingDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: missing next billing date", ErrMalformedResponse)
	}
	for _, layout := range billingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civilDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable next billing date", ErrMalformedResponse)
}

// maskCard keeps the last four digits of a card number.
func maskCard(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "*xX•") {
		return s
	}
	if len(s) <= 4 {
		return s
	}
	return "**** " + s[len(s)-4:]
}

// flexString accepts a JSON string, number or null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// flexBool accepts JSON booleans, 0/1 and their quoted forms. Any other value
// leaves it unset.
type flexBool struct {
	set   bool
	value bool
}

func (f *flexBool) UnmarshalJSON(b []byte) error {
	*f = flexBool{}
	switch strings.ToLower(strings.Trim(string(bytes.TrimSpace(b)), `"`)) {
	case "true", "1":
		*f = flexBool{set: true, value: true}
	case "false", "0":
		*f = flexBool{set: true}
	}
	return nil
}
