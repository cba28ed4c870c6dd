// Package config loads typed configuration from the process environment.
//
// Values come from environment variables, optionally seeded from a `.env` file
// in the working directory (github.com/joho/godotenv), and are parsed into
// structs annotated with `env` tags (github.com/caarlos0/env/v11).
//
// Every component owns its configuration struct:
//
//	type ProviderConfig struct {
//		BaseURL        string        `env:"BILLING_API_URL,required"`
//		RequestTimeout time.Duration `env:"BILLING_REQUEST_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg ProviderConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Load caches the parsed value per type, so repeated calls are cheap and return
// the same snapshot. Parse skips the cache and is what tests use when they set
// environment variables with t.Setenv.
//
// Configuration is read once at startup and handed to constructors; business
// code never reads the environment directly.
package config
