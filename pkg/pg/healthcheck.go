package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Healthcheck pings pool and checks that the migrations table exists, so an
// instance is not ready before its schema has been applied.
func Healthcheck(pool *pgxpool.Pool, cfg Config) func(context.Context) error {
	table := cfg.MigrationsTable
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		if table == "" {
			return nil
		}
		var migrated bool
		if err := pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", table).Scan(&migrated); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		if !migrated {
			return fmt.Errorf("%w: %s missing", ErrSchemaNotMigrated, table)
		}
		return nil
	}
}
