package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// Sealer encrypts and decrypts scoped secrets with a single application key.
// It is safe for concurrent use.
type Sealer struct {
	appKey []byte
}

// NewSealer copies appKey, which must be KeySize bytes long.
func NewSealer(appKey []byte) (*Sealer, error) {
	if len(appKey) != KeySize {
		return nil, ErrInvalidAppKey
	}
	return &Sealer{appKey: append([]byte(nil), appKey...)}, nil
}

// Seal encrypts plaintext for scope and returns the base64 encoded result.
func (s *Sealer) Seal(scope, plaintext string) (string, error) {
	aead, err := s.aead(scope)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	out := aead.Seal(nonce, nonce, []byte(plaintext), []byte(scope))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. It fails when sealed was produced for a different scope or key.
func (s *Sealer) Open(scope, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}

	aead, err := s.aead(scope)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}

	ns := aead.NonceSize()
	if len(raw) < ns+aead.Overhead() {
		return "", ErrInvalidCiphertext
	}

	plain, err := aead.Open(nil, raw[:ns], raw[ns:], []byte(scope))
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	return string(plain), nil
}

func (s *Sealer) aead(scope string) (cipher.AEAD, error) {
	if scope == "" {
		return nil, ErrEmptyScope
	}

	key, err := deriveKey(s.appKey, scope)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
