package billing_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/billing"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fakeProvider is an httptest billing provider. Each API token maps to a
// services listing; OTPs are minted as "otp-<token>-<n>".
type fakeProvider struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	seq         int
	owners      map[string]string
	listings    map[string]string
	otpStatus   map[string]int
	otpCalls    int
	readCalls   int
	cancelCalls int
	spent       map[string]int
	cancelBody  map[string]any
	cancelReply string
	readStatus  int
	delay       time.Duration
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		t:         t,
		owners:    map[string]string{},
		listings:  map[string]string{},
		otpStatus: map[string]int{},
		spent:     map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/otp", p.handleOTP)
	mux.HandleFunc("GET /api/v1/recurring-services/active", p.handleServices)
	mux.HandleFunc("PUT /api/v1/recurring-services", p.handleCancel)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakeProvider) config() billing.ProviderConfig {
	return billing.ProviderConfig{
		APIURL:         p.srv.URL,
		CheckoutURL:    "https://pay.example.com/",
		TokenHeader:    "X-Api-Token",
		OTPPath:        "/api/v1/auth/otp",
		ServicesPath:   "/api/v1/recurring-services/active",
		CancelPath:     "/api/v1/recurring-services",
		ProductID:      "prod-42",
		Quantity:       1,
		ReturnURL:      "https://app.example.com/billing?tab=plan",
		RequestTimeout: time.Second,
		Timezone:       "UTC",
	}
}

func (p *fakeProvider) client(opts ...billing.ClientOption) *billing.Client {
	p.t.Helper()
	opts = append([]billing.ClientOption{billing.WithClientClock(fixedClock)}, opts...)
	c, err := billing.NewClient(p.config(), opts...)
	require.NoError(p.t, err)
	return c
}

// active registers a single active service for token billing next on next.
func (p *fakeProvider) active(token, subID string, next time.Time) {
	p.listing(token, fmt.Sprintf(`{"data":{"recurring_services":[{"id":%q,"product_id":"prod-42","price":"19.90","next_recurring_billing_date":%q,"card_number":"4111111111111111","status":"active","recurring_type":"monthly"}]}}`,
		subID, next.Format(time.DateOnly)))
}

func (p *fakeProvider) listing(token, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listings[token] = body
}

func (p *fakeProvider) failOTP(token string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.otpStatus[token] = status
}

func (p *fakeProvider) calls() (otp, read, cancel int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.otpCalls, p.readCalls, p.cancelCalls
}

func (p *fakeProvider) handleOTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.otpCalls++
	token := r.Header.Get("X-Api-Token")
	if token == "" || r.URL.RawQuery != "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if status, ok := p.otpStatus[token]; ok {
		w.WriteHeader(status)
		return
	}
	p.seq++
	otp := fmt.Sprintf("otp-%s-%d", token, p.seq)
	p.owners[otp] = token
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"otp":%q}`, otp)
}

// spend validates a bearer OTP and marks it used.
func (p *fakeProvider) spend(r *http.Request) (string, bool) {
	otp, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return "", false
	}
	token, ok := p.owners[otp]
	if !ok || p.spent[otp] > 0 {
		return "", false
	}
	p.spent[otp]++
	return token, true
}

func (p *fakeProvider) handleServices(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.readCalls++
	delay := p.delay
	status := p.readStatus
	token, ok := p.spend(r)
	body, found := p.listings[token]
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if !found {
		body = `{"data":{"recurring_services":[]}}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func (p *fakeProvider) handleCancel(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelCalls++
	if _, ok := p.spend(r); !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	p.cancelBody = body
	reply := p.cancelReply
	if reply == "" {
		reply = `{"success":true}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, reply)
}

// startRawServer answers every request with status and body.
func startRawServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
