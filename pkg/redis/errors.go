package redis

import "errors"

// Connection errors.
var (
	ErrEmptyConnectionURL           = errors.New("redis: empty connection URL, set REDIS_URL")
	ErrFailedToParseRedisConnString = errors.New("redis: failed to parse connection string")
	ErrRedisNotReady                = errors.New("redis: not ready within connect timeout")
	ErrHealthcheckFailed            = errors.New("redis: healthcheck failed")
	ErrReadOnlyReplica              = errors.New("redis: connected to a read-only replica")
)

// Lock errors.
var (
	// ErrLockHeld is returned by Acquire while another owner holds the key.
	ErrLockHeld = errors.New("redis: lock is held by another owner")
	// ErrLockNotHeld is returned by Release after the lock expired or was taken over.
	ErrLockNotHeld = errors.New("redis: lock is no longer held")
)
