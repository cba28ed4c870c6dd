package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive locks shared by every process using
// the same Redis database.
type Locker struct {
	client redis.UniversalClient
	prefix string
}

// NewLocker panics on a nil client. Keys are stored under prefix.
func NewLocker(client redis.UniversalClient, prefix string) *Locker {
	if client == nil {
		panic("redis: locker requires a client")
	}
	return &Locker{client: client, prefix: prefix}
}

// Lock is an acquired lock. It expires on its own after the TTL passed to Acquire.
type Lock struct {
	client redis.UniversalClient
	key    string
	token  string
}

// Acquire takes key for ttl. It returns ErrLockHeld when another owner has it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	full := l.prefix + key
	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: l.client, key: full, token: token}, nil
}

// Release deletes the lock if it is still owned by this holder.
// ErrLockNotHeld means the TTL passed and someone else may own it now.
func (lk *Lock) Release(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
