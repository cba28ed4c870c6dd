package tenant_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/tenant"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("stores tenant id", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		var got uuid.UUID

		h := tenant.Middleware(tenant.NewHeaderResolver(""))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var ok bool
			got, ok = tenant.IDFromContext(r.Context())
			require.True(t, ok)
			w.WriteHeader(http.StatusNoContent)
		}))

		req := httptest.NewRequest(http.MethodGet, "/billing/subscription", nil)
		req.Header.Set("X-Tenant-ID", id.String())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, id, got)
	})

	t.Run("missing tenant is unauthorized", func(t *testing.T) {
		t.Parallel()
		h := tenant.Middleware(tenant.NewHeaderResolver(""))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Error("handler must not run")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/subscription", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed id goes to custom handler", func(t *testing.T) {
		t.Parallel()
		var gotErr error
		mw := tenant.Middleware(tenant.NewHeaderResolver("X-Account"), tenant.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
			gotErr = err
			w.WriteHeader(http.StatusForbidden)
		}))
		h := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Error("handler must not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Account", "not-a-uuid")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.ErrorIs(t, gotErr, tenant.ErrInvalidIdentifier)
	})

	t.Run("skip paths", func(t *testing.T) {
		t.Parallel()
		h := tenant.Middleware(tenant.NewHeaderResolver(""), tenant.WithSkipPaths("/internal/"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := tenant.IDFromContext(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusAccepted)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/internal/reconcile", nil))
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("resolver func errors", func(t *testing.T) {
		t.Parallel()
		resolver := tenant.ResolverFunc(func(*http.Request) (uuid.UUID, error) {
			return uuid.Nil, errors.New("session expired")
		})
		h := tenant.Middleware(resolver)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Error("handler must not run")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestIDFromContext(t *testing.T) {
	t.Parallel()

	_, ok := tenant.IDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = tenant.IDFromContext(tenant.WithID(context.Background(), uuid.Nil))
	assert.False(t, ok, "nil uuid is not a tenant")

	id := uuid.New()
	got, ok := tenant.IDFromContext(tenant.WithID(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithContextExtractors(tenant.LoggerExtractor()))

	id := uuid.New()
	log.InfoContext(tenant.WithID(context.Background(), id), "reconciled")
	assert.Contains(t, buf.String(), `"tenant_id":"`+id.String()+`"`)
}
