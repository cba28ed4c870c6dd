package tenantstore

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/billsync/pkg/billing"
	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/pg"
	"github.com/dmitrymomot/billsync/pkg/secrets"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists tenants in Postgres.
type Store struct {
	db     DB
	sealer *secrets.Sealer
	logger *slog.Logger
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New panics on a nil db or sealer.
func New(db DB, sealer *secrets.Sealer, opts ...Option) *Store {
	if db == nil {
		panic("tenantstore: db cannot be nil")
	}
	if sealer == nil {
		panic("tenantstore: sealer cannot be nil")
	}
	s := &Store{
		db:     db,
		sealer: sealer,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("tenantstore"))
	return s
}

// Create inserts a tenant without a credential.
func (s *Store) Create(ctx context.Context, tenantID, ownerUserID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO tenants (id, owner_user_id) VALUES ($1, $2)`,
		tenantID, ownerUserID,
	)
	if err != nil {
		return storeError(err)
	}
	return nil
}

// SealToken stores a tenant's delegated credential. The token is sealed
// before it leaves the process.
func (s *Store) SealToken(ctx context.Context, tenantID uuid.UUID, cred billing.Credential) error {
	if strings.TrimSpace(cred.APIToken) == "" {
		return billing.ErrMissingCredential
	}
	sealed, err := s.sealer.Seal(tenantID.String(), cred.APIToken)
	if err != nil {
		return storeError(err)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE tenants
		 SET delegated_api_token = $2, external_customer_id = $3, updated_at = now()
		 WHERE id = $1`,
		tenantID, sealed, nullable(cred.CustomerID),
	)
	if err != nil {
		return storeError(err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrTenantNotFound
	}
	return nil
}

// GetCredential opens the tenant's sealed token.
func (s *Store) GetCredential(ctx context.Context, tenantID uuid.UUID) (billing.Credential, error) {
	var token, customerID *string
	err := s.db.QueryRow(ctx,
		`SELECT delegated_api_token, external_customer_id FROM tenants WHERE id = $1`,
		tenantID,
	).Scan(&token, &customerID)
	if pg.IsNotFoundError(err) {
		return billing.Credential{}, billing.ErrTenantNotFound
	}
	if err != nil {
		return billing.Credential{}, storeError(err)
	}
	if token == nil || strings.TrimSpace(*token) == "" {
		return billing.Credential{}, billing.ErrMissingCredential
	}

	apiToken, err := s.sealer.Open(tenantID.String(), *token)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to open delegated token",
			logger.TenantID(tenantID), logger.Error(err))
		return billing.Credential{}, storeError(err)
	}

	cred := billing.Credential{APIToken: apiToken}
	if customerID != nil {
		cred.CustomerID = *customerID
	}
	return cred, nil
}

func (s *Store) ListCredentialedTenants(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM tenants
		 WHERE delegated_api_token IS NOT NULL AND delegated_api_token <> ''
		 ORDER BY id`,
	)
	if err != nil {
		return nil, storeError(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, storeError(err)
	}
	return ids, nil
}

// Upsert writes a reconciliation snapshot in one statement.
func (s *Store) Upsert(ctx context.Context, tenantID uuid.UUID, snap billing.Snapshot) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tenants
		 SET subscription_active = $2,
		     subscription_next_billing_date = $3,
		     subscription_last_checked_at = $4,
		     updated_at = now()
		 WHERE id = $1`,
		tenantID, snap.Active, snap.NextBillingDate, snap.CheckedAt,
	)
	if err != nil {
		return storeError(err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrTenantNotFound
	}
	return nil
}

func (s *Store) GetState(ctx context.Context, tenantID uuid.UUID) (billing.TenantState, error) {
	var (
		st      billing.TenantState
		next    *time.Time
		checked *time.Time
	)
	err := s.db.QueryRow(ctx,
		`SELECT delegated_api_token IS NOT NULL AND delegated_api_token <> '',
		        subscription_active,
		        subscription_next_billing_date,
		        subscription_last_checked_at
		 FROM tenants WHERE id = $1`,
		tenantID,
	).Scan(&st.HasCredential, &st.Active, &next, &checked)
	if pg.IsNotFoundError(err) {
		return billing.TenantState{}, billing.ErrTenantNotFound
	}
	if err != nil {
		return billing.TenantState{}, storeError(err)
	}
	st.NextBillingDate = next
	st.LastCheckedAt = checked
	return st, nil
}

func storeError(err error) error {
	return errors.Join(billing.ErrStore, err)
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
