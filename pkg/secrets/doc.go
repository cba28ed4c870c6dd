// Package secrets seals short secrets, such as delegated billing API tokens,
// for storage next to the row they belong to.
//
// A Sealer holds a 32-byte application key. Every Seal and Open call names a
// scope (a tenant id in practice); the AES-256-GCM key is derived from the
// application key and the scope with HKDF-SHA-256, and the scope is also bound
// as additional authenticated data. A ciphertext copied to another tenant's row
// therefore fails to open.
//
//	s, err := secrets.NewSealer(appKey)
//	sealed, err := s.Seal(tenantID.String(), apiToken)
//	plain, err := s.Open(tenantID.String(), sealed)
//
// Sealed values are base64 strings in the form nonce || ciphertext || tag.
package secrets
