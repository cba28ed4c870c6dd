package requestid_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/requestid"
)

func serve(header string) (seen string, rec *httptest.ResponseRecorder) {
	h := requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestid.FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodPost, "/billing/cancel", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("reuses valid header", func(t *testing.T) {
		t.Parallel()
		seen, rec := serve("req_42-abc")
		assert.Equal(t, "req_42-abc", seen)
		assert.Equal(t, "req_42-abc", rec.Header().Get(requestid.Header))
	})

	for _, bad := range []string{"", "has space", "a/b", "<script>", strings.Repeat("x", 129)} {
		t.Run("replaces "+bad, func(t *testing.T) {
			t.Parallel()
			seen, rec := serve(bad)
			require.NotEmpty(t, seen)
			assert.NotEqual(t, bad, seen)
			assert.Len(t, seen, 36)
			assert.Equal(t, seen, rec.Header().Get(requestid.Header))
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()
	assert.Empty(t, requestid.FromContext(context.Background()))
	assert.Equal(t, "abc", requestid.FromContext(requestid.WithContext(context.Background(), "abc")))
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(buf),
		logger.WithFormat(logger.FormatJSON),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)

	log.InfoContext(requestid.WithContext(context.Background(), "req-1"), "hello")
	log.InfoContext(context.Background(), "bare")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"request_id":"req-1"`)
	assert.NotContains(t, lines[1], "request_id")
}
