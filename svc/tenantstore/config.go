package tenantstore

// Config holds the key that seals delegated API tokens at rest.
type Config struct {
	// TokenKey is a base64 encoded 32-byte key.
	TokenKey string `env:"TENANT_TOKEN_KEY,required"`
}
