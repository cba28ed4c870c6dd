package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.Info("hello")

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithFormat(logger.FormatText))
		log.Info("hello")

		assert.Contains(t, buf.String(), "level=INFO")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("static attributes", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithAttr(slog.String("svc", "billsync")))
		log.Info("msg")

		assert.Equal(t, "billsync", decode(t, buf)["svc"])
	})

	t.Run("context extractors", func(t *testing.T) {
		t.Parallel()
		type key struct{}
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextExtractors(nil, func(ctx context.Context) (slog.Attr, bool) {
				if v, ok := ctx.Value(key{}).(string); ok {
					return slog.String("tenant_id", v), true
				}
				return slog.Attr{}, false
			}),
		)

		log.InfoContext(context.WithValue(context.Background(), key{}, "t-1"), "with tenant")
		assert.Equal(t, "t-1", decode(t, buf)["tenant_id"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevel(slog.LevelWarn))
		log.Info("dropped")

		assert.Empty(t, buf.String())
	})
}

func TestNew_Redaction(t *testing.T) {
	t.Parallel()

	t.Run("default keys", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.Info("exchange", slog.String("api_token", "tok_live_123"), slog.String("OTP", "999111"))

		out := buf.String()
		assert.NotContains(t, out, "tok_live_123")
		assert.NotContains(t, out, "999111")

		entry := decode(t, buf)
		assert.Equal(t, logger.Redacted, entry["api_token"])
		assert.Equal(t, logger.Redacted, entry["OTP"])
	})

	t.Run("extra keys", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithRedactedKeys(" Card_Number "))
		log.Info("card", slog.String("card_number", "4111111111111111"), slog.String("customer", "c-1"))

		entry := decode(t, buf)
		assert.Equal(t, logger.Redacted, entry["card_number"])
		assert.Equal(t, "c-1", entry["customer"])
	})
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env      string
		wantEnv  string
		wantJSON bool
		debug    bool
	}{
		{env: "production", wantEnv: logger.EnvProduction, wantJSON: true},
		{env: "prod", wantEnv: logger.EnvProduction, wantJSON: true},
		{env: "stage", wantEnv: logger.EnvStaging, wantJSON: true},
		{env: "", wantEnv: logger.EnvDevelopment, debug: true},
		{env: "local", wantEnv: logger.EnvDevelopment, debug: true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			log := logger.New(logger.WithEnvironment(tt.env, "billsync"), logger.WithOutput(buf))

			assert.Equal(t, tt.debug, log.Enabled(context.Background(), slog.LevelDebug))

			log.Info("boot")
			if tt.wantJSON {
				entry := decode(t, buf)
				assert.Equal(t, tt.wantEnv, entry["env"])
				assert.Equal(t, "billsync", entry["service"])
			} else {
				assert.Contains(t, buf.String(), "env="+tt.wantEnv)
				assert.Contains(t, buf.String(), "service=billsync")
			}
		})
	}
}

func TestWithFormatPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}
