// Package pg connects to PostgreSQL with pgx/v5 and applies goose migrations.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, tenantstore.Migrations(), cfg, log); err != nil {
//		return err
//	}
//
// Healthcheck adapts the pool to a readiness probe for pkg/httpserver. It
// also fails until the migrations table exists.
package pg
