package redis

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Healthcheck returns a readiness probe for client. A read-only replica fails
// the probe because Locker cannot acquire locks there.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		info, err := client.Info(ctx, "replication").Result()
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		if strings.Contains(info, "role:slave") {
			return ErrReadOnlyReplica
		}
		return nil
	}
}
