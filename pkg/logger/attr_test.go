package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

func TestError(t *testing.T) {
	t.Parallel()
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestTenantID(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	attr := logger.TenantID(id)
	require.Equal(t, "tenant_id", attr.Key)
	assert.Equal(t, id, attr.Value.Any())

	assert.True(t, logger.TenantID(nil).Equal(slog.Attr{}))
}

func TestErrorKind(t *testing.T) {
	t.Parallel()
	attr := logger.ErrorKind("timeout")
	assert.Equal(t, "error_kind", attr.Key)
	assert.Equal(t, "timeout", attr.Value.String())

	assert.True(t, logger.ErrorKind("").Equal(slog.Attr{}))
}

func TestSimpleAttrs(t *testing.T) {
	t.Parallel()
	assert.Equal(t, slog.String("component", "reconciler"), logger.Component("reconciler"))
	assert.Equal(t, slog.String("operation", "resolve"), logger.Operation("resolve"))
	assert.Equal(t, slog.Int("attempt", 2), logger.Attempt(2))
	assert.Equal(t, slog.Duration("duration", time.Second), logger.Duration(time.Second))
	assert.Equal(t, slog.String("job", "billing.reconcile_all"), logger.Job("billing.reconcile_all"))
	assert.True(t, logger.RequestID("").Equal(slog.Attr{}))
}
