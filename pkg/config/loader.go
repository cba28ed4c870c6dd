package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type cache struct {
	mu     sync.RWMutex
	values map[string]any
	onces  map[string]*sync.Once
}

var (
	loaded = &cache{
		values: make(map[string]any),
		onces:  make(map[string]*sync.Once),
	}

	dotenvOnce sync.Once
)

// Load parses the environment into v and caches the result per type.
// The `.env` file in the working directory is read once, if present; variables
// already set in the process take precedence over it.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	loadDotenv()

	key := typeKey[T]()

	if cached, ok := loaded.get(key); ok {
		*v = cached.(T)
		return nil
	}

	var parseErr error
	loaded.once(key).Do(func() {
		var fresh T
		if err := env.Parse(&fresh); err != nil {
			parseErr = errors.Join(ErrParsingConfig, err)
			return
		}
		loaded.set(key, fresh)
	})
	if parseErr != nil {
		// allow a later call to retry once the environment is fixed
		loaded.forget(key)
		return parseErr
	}

	cached, ok := loaded.get(key)
	if !ok {
		return ErrConfigNotLoaded
	}
	*v = cached.(T)
	return nil
}

// MustLoad works like Load but panics on failure.
// Use it in main for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load %s: %v", typeKey[T](), err))
	}
}

// Parse reads the environment into v without touching the cache.
func Parse[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

func loadDotenv() {
	dotenvOnce.Do(func() {
		// a missing .env file is the normal case outside local development
		_ = godotenv.Load()
	})
}

func (c *cache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *cache) set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = v
}

func (c *cache) once(key string) *sync.Once {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.onces[key]
	if !ok {
		o = new(sync.Once)
		c.onces[key] = o
	}
	return o
}

func (c *cache) forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.onces, key)
	delete(c.values, key)
}

func typeKey[T any]() string {
	t := reflect.TypeFor[T]()
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
