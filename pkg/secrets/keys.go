package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required application key length (AES-256).
	KeySize = 32

	kdfInfo = "billsync-secrets-v1"
)

// ParseKey decodes a base64 (standard or URL alphabet) application key and checks its length.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		key, err = base64.URLEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, errors.Join(ErrInvalidAppKey, err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidAppKey
	}
	return key, nil
}

// GenerateKey returns a fresh random application key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// deriveKey returns the per-scope AES key. The caller zeroes it after use.
func deriveKey(appKey []byte, scope string) ([]byte, error) {
	r := hkdf.New(sha256.New, appKey, []byte(scope), []byte(kdfInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
