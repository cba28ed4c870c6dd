package secrets_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billsync/pkg/secrets"
)

func newSealer(t *testing.T) *secrets.Sealer {
	t.Helper()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	s, err := secrets.NewSealer(key)
	require.NoError(t, err)
	return s
}

func TestSealer_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newSealer(t)

	for _, plain := range []string{"", "tok_live_8f2a", strings.Repeat("x", 512)} {
		sealed, err := s.Seal("tenant-a", plain)
		require.NoError(t, err)

		got, err := s.Open("tenant-a", sealed)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestSealer_NonceIsRandom(t *testing.T) {
	t.Parallel()
	s := newSealer(t)

	a, err := s.Seal("tenant-a", "same")
	require.NoError(t, err)
	b, err := s.Seal("tenant-a", "same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestSealer_ScopeBinding(t *testing.T) {
	t.Parallel()
	s := newSealer(t)

	sealed, err := s.Seal("tenant-a", "tok_live_8f2a")
	require.NoError(t, err)

	_, err = s.Open("tenant-b", sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestSealer_WrongKey(t *testing.T) {
	t.Parallel()
	sealed, err := newSealer(t).Seal("tenant-a", "tok")
	require.NoError(t, err)

	_, err = newSealer(t).Open("tenant-a", sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestSealer_InvalidInput(t *testing.T) {
	t.Parallel()
	s := newSealer(t)

	_, err := s.Open("tenant-a", "%%%not-base64")
	assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)

	_, err = s.Open("tenant-a", base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)

	_, err = s.Seal("", "tok")
	assert.ErrorIs(t, err, secrets.ErrEmptyScope)
}

func TestNewSealer_KeyLength(t *testing.T) {
	t.Parallel()
	_, err := secrets.NewSealer(make([]byte, 16))
	assert.ErrorIs(t, err, secrets.ErrInvalidAppKey)
}

func TestParseKey(t *testing.T) {
	t.Parallel()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)

	got, err := secrets.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = secrets.ParseKey(base64.URLEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = secrets.ParseKey(base64.StdEncoding.EncodeToString(key[:20]))
	assert.ErrorIs(t, err, secrets.ErrInvalidAppKey)

	_, err = secrets.ParseKey("!!")
	assert.ErrorIs(t, err, secrets.ErrInvalidAppKey)
}
