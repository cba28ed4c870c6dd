// Package tenantstore is the Postgres home of tenant billing state.
//
// Store implements billing.TokenVault, billing.PersistenceSink and
// billing.StatusReader over the tenants table. Delegated API tokens are kept
// sealed with pkg/secrets, scoped to the tenant id, and are only opened in
// memory when the billing engine asks for a credential.
//
// Reconciliation writes go through Upsert, which touches the three
// subscription columns and nothing else.
//
// The schema ships as embedded goose migrations:
//
//	if err := pg.Migrate(ctx, pool, tenantstore.Migrations(), pgCfg, log); err != nil {
//		return err
//	}
package tenantstore
