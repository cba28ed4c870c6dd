// Package redis connects to Redis with go-redis and provides a small
// distributed lock.
//
// Redis is optional for billsync: when REDIS_URL is empty the service runs
// without cross-process batch locking.
//
//	client, err := redis.Connect(ctx, cfg)
//	locker := redis.NewLocker(client, "billsync:")
//	lock, err := locker.Acquire(ctx, "reconcile_all", 30*time.Minute)
//	if errors.Is(err, redis.ErrLockHeld) {
//		// another instance is running the batch
//	}
//	defer lock.Release(context.WithoutCancel(ctx))
package redis
