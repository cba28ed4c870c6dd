package billing_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/billing"
)

func newGateway(p *fakeProvider, store *billing.MemoryStore) *billing.Gateway {
	c := p.client()
	return billing.NewGateway(store, c, c, c, p.config().Links())
}

func TestGateway_CardUpdateURL(t *testing.T) {
	t.Parallel()

	t.Run("embeds fresh otp and subscription", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider(t)
		store := billing.NewMemoryStore()
		id := uuid.New()
		store.Put(id, &billing.Credential{APIToken: "tok-a", CustomerID: "cus-1"})
		p.active("tok-a", "sub-77", date(2025, time.April, 1))

		link, err := newGateway(p, store).CardUpdateURL(context.Background(), id)
		require.NoError(t, err)

		u, err := url.Parse(link)
		require.NoError(t, err)
		assert.Equal(t, "pay.example.com", u.Host)
		assert.Equal(t, "/subscriptions/sub-77/card", u.Path)
		assert.Equal(t, "otp-tok-a-2", u.Query().Get("otp"))
		assert.Equal(t, "https://app.example.com/billing?tab=plan", u.Query().Get("return_url"))
		assert.Contains(t, link, "return_url=https%3A%2F%2Fapp.example.com%2Fbilling%3Ftab%3Dplan")

		otp, read, _ := p.calls()
		assert.Equal(t, 2, otp)
		assert.Equal(t, 1, read)
	})

	t.Run("inactive subscription", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider(t)
		store := billing.NewMemoryStore()
		id := uuid.New()
		store.Put(id, &billing.Credential{APIToken: "tok-a"})

		_, err := newGateway(p, store).CardUpdateURL(context.Background(), id)
		assert.ErrorIs(t, err, billing.ErrNoActiveSubscription)
		otp, _, _ := p.calls()
		assert.Equal(t, 1, otp)
	})

	t.Run("no credential", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider(t)
		store := billing.NewMemoryStore()
		id := uuid.New()
		store.Put(id, nil)

		_, err := newGateway(p, store).CardUpdateURL(context.Background(), id)
		assert.ErrorIs(t, err, billing.ErrMissingCredential)
	})
}

func TestGateway_Cancel(t *testing.T) {
	t.Parallel()

	t.Run("blank subscription id", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider(t)
		store := billing.NewMemoryStore()
		id := uuid.New()
		store.Put(id, &billing.Credential{APIToken: "tok-a", CustomerID: "cus-1"})

		err := newGateway(p, store).Cancel(context.Background(), id, " ")
		assert.ErrorIs(t, err, billing.ErrNoActiveSubscription)
		otp, read, cancel := p.calls()
		assert.Zero(t, otp+read+cancel)
	})

	t.Run("disables auto renewal without touching local state", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider(t)
		store := billing.NewMemoryStore()
		id := uuid.New()
		store.Put(id, &billing.Credential{APIToken: "tok-a", CustomerID: "cus-1"})

		require.NoError(t, newGateway(p, store).Cancel(context.Background(), id, "sub-1"))
		assert.Equal(t, "sub-1", p.cancelBody["id"])
		assert.Equal(t, "cus-1", p.cancelBody["customer_id"])

		st, err := store.GetState(context.Background(), id)
		require.NoError(t, err)
		assert.Nil(t, st.LastCheckedAt)
	})

	t.Run("missing customer id", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider(t)
		store := billing.NewMemoryStore()
		id := uuid.New()
		store.Put(id, &billing.Credential{APIToken: "tok-a"})

		err := newGateway(p, store).Cancel(context.Background(), id, "sub-1")
		assert.ErrorIs(t, err, billing.ErrMissingCredential)
		otp, _, _ := p.calls()
		assert.Zero(t, otp)
	})
}

func TestGateway_Restart(t *testing.T) {
	t.Parallel()

	t.Run("checkout link", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider(t)
		store := billing.NewMemoryStore()
		id := uuid.New()
		store.Put(id, &billing.Credential{APIToken: "tok-a"})

		link, err := newGateway(p, store).Restart(context.Background(), id)
		require.NoError(t, err)
		u, err := url.Parse(link)
		require.NoError(t, err)
		assert.Equal(t, "/checkout", u.Path)
		assert.Equal(t, "prod-42", u.Query().Get("product"))
		assert.Equal(t, "1", u.Query().Get("quantity"))
		assert.Equal(t, "otp-tok-a-1", u.Query().Get("otp"))
	})

	t.Run("requires onboarding", func(t *testing.T) {
		t.Parallel()
		p := newFakeProvider(t)
		store := billing.NewMemoryStore()
		id := uuid.New()
		store.Put(id, nil)

		_, err := newGateway(p, store).Restart(context.Background(), id)
		assert.ErrorIs(t, err, billing.ErrRequiresOnboarding)
		assert.Equal(t, billing.KindRequiresOnboarding, billing.KindOf(err))
		otp, _, _ := p.calls()
		assert.Zero(t, otp)
	})
}

func TestGateway_Subscription(t *testing.T) {
	t.Parallel()
	p := newFakeProvider(t)
	store := billing.NewMemoryStore()
	id := uuid.New()
	store.Put(id, &billing.Credential{APIToken: "tok-a"})
	p.active("tok-a", "sub-1", date(2025, time.March, 11))

	st, err := newGateway(p, store).Subscription(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Equal(t, "sub-1", st.Service.ID)
}
