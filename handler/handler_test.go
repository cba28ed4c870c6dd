package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/handler"
	"github.com/dmitrymomot/billsync/pkg/binder"
	"github.com/dmitrymomot/billsync/pkg/logger"
)

type cancelRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var body handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWrap_BindsAndRenders(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(_ handler.Context, req cancelRequest) handler.Response {
		return handler.JSON(map[string]string{"id": req.SubscriptionID}, handler.WithJSONStatus(http.StatusAccepted))
	}, handler.WithBinders[handler.Context, cancelRequest](binder.JSON()))

	req := httptest.NewRequest(http.MethodPost, "/billing/cancel", strings.NewReader(`{"subscription_id":"sub_1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]any{"id": "sub_1"}, decodeBody(t, rec).Data)
}

func TestWrap_BinderErrorIsBadRequest(t *testing.T) {
	t.Parallel()

	var got error
	h := handler.Wrap(func(handler.Context, cancelRequest) handler.Response {
		t.Error("handler must not run")
		return handler.Empty()
	},
		handler.WithBinders[handler.Context, cancelRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, cancelRequest](func(ctx handler.Context, err error) {
			got = err
			ctx.ResponseWriter().WriteHeader(handler.AsHTTPError(err).Code)
		}),
	)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.ErrorIs(t, got, binder.ErrFailedToParseJSON)
}

func TestWrap_EmptyBodySkipsBinder(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(_ handler.Context, req cancelRequest) handler.Response {
		assert.Empty(t, req.SubscriptionID)
		return handler.Empty()
	}, handler.WithBinders[handler.Context, cancelRequest](binder.JSON()))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWrap_ErrorResponseUsesErrorHandler(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf))
	conflict := handler.NewHTTPError(http.StatusConflict, "no_active_subscription")

	h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
		return handler.Error(errors.Join(conflict, errors.New("provider said no")))
	}, handler.WithErrorHandler[handler.Context, struct{}](handler.NewErrorHandler(log, nil)))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/billing/card", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "no_active_subscription", body.Error.Code)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"path":"/billing/card"`)
}

func TestWrap_NilResponse(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(handler.Context, struct{}) handler.Response { return nil })
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWrap_Decorators(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) handler.Decorator[handler.Context, struct{}] {
		return func(next handler.HandlerFunc[handler.Context, struct{}]) handler.HandlerFunc[handler.Context, struct{}] {
			return func(ctx handler.Context, req struct{}) handler.Response {
				order = append(order, name)
				return next(ctx, req)
			}
		}
	}

	h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
		order = append(order, "handler")
		return handler.Empty()
	}, handler.WithDecorators(mark("outer"), mark("inner")))

	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRedirect(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(handler.Context, struct{}) handler.Response {
		return handler.Redirect("https://checkout.example.com/checkout?otp=abc")
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/billing/restart", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "https://checkout.example.com/checkout?otp=abc", rec.Header().Get("Location"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAsHTTPError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, handler.ErrInternalServerError, handler.AsHTTPError(errors.New("boom")))
	assert.Equal(t, handler.ErrPaymentRequired, handler.AsHTTPError(errors.Join(handler.ErrPaymentRequired, errors.New("x"))))
}
