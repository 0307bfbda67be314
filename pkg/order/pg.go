package order

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config holds the ledger database configuration.
type Config struct {
	ConnectionString  string        `env:"LEDGER_DB_URL,required"`
	MaxOpenConns      int32         `env:"LEDGER_DB_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"LEDGER_DB_MAX_IDLE_CONNS" envDefault:"5"`
	HealthCheckPeriod time.Duration `env:"LEDGER_DB_HEALTHCHECK_PERIOD" envDefault:"1m"`
	RetryAttempts     int           `env:"LEDGER_DB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval     time.Duration `env:"LEDGER_DB_RETRY_INTERVAL" envDefault:"5s"`
}

// Connect establishes the ledger connection pool with retry logic.
// Linear backoff between attempts keeps simultaneous service restarts from
// hammering the database.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConf, err)
	}
	connConfig.MaxConns = cfg.MaxOpenConns
	connConfig.MinConns = cfg.MaxIdleConns
	connConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	for i := range cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err != nil {
			time.Sleep(time.Duration(i+1) * cfg.RetryInterval)
			continue
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			time.Sleep(time.Duration(i+1) * cfg.RetryInterval)
			continue
		}
		return pool, nil
	}
	return nil, ErrFailedToOpenDB
}

// Migrate applies the embedded ledger schema migrations using goose.
// Bridges the pgx pool to database/sql since goose speaks the standard
// library interface.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToMigrate, err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Join(ErrFailedToMigrate, err)
	}
	return nil
}

// PGStore is the Postgres-backed order ledger.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a ledger store on an existing connection pool.
// Panics on a nil pool to fail fast during initialization.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	if pool == nil {
		panic("order: connection pool is required")
	}
	return &PGStore{pool: pool}
}

// Create inserts a new order row.
func (s *PGStore) Create(ctx context.Context, o *Order) error {
	if o.Metadata == nil {
		o.Metadata = map[string]string{}
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, product_id, product_type, kind, amount, currency,
			status, provider, request_id, session_id, metadata, created_at, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		o.ID, o.UserID, o.ProductID, o.ProductType, o.Kind, o.Amount, o.Currency,
		o.Status, o.Provider, o.RequestID, o.SessionID, o.Metadata, o.CreatedAt, o.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// Get retrieves an order by ID.
func (s *PGStore) Get(ctx context.Context, orderID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, product_id, product_type, kind, amount, currency,
			status, provider, request_id, session_id, metadata, created_at, paid_at
		FROM orders WHERE id = $1`, orderID)

	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.ProductID, &o.ProductType, &o.Kind, &o.Amount,
		&o.Currency, &o.Status, &o.Provider, &o.RequestID, &o.SessionID, &o.Metadata,
		&o.CreatedAt, &o.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &o, nil
}

// SetSession records the provider checkout session id on an order.
func (s *PGStore) SetSession(ctx context.Context, orderID, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET session_id = $2 WHERE id = $1`, orderID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set order session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// UpdateStatus moves an order to a new status inside a transaction, holding
// a row lock so the monotonic transition check and the write are atomic.
func (s *PGStore) UpdateStatus(ctx context.Context, orderID string, status Status, extra map[string]string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var current Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock order: %w", err)
	}

	if !CanTransition(current, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	if extra == nil {
		extra = map[string]string{}
	}
	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = $2,
			metadata = metadata || $3,
			paid_at = CASE WHEN $2 = 'paid' THEN now() ELSE paid_at END
		WHERE id = $1`, orderID, status, extra)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return tx.Commit(ctx)
}

// MergeMetadata merges the partial map into the order's metadata.
func (s *PGStore) MergeMetadata(ctx context.Context, orderID string, partial map[string]string) error {
	if len(partial) == 0 {
		return nil
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET metadata = metadata || $2 WHERE id = $1`, orderID, partial)
	if err != nil {
		return fmt.Errorf("failed to merge order metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// CountPaidByUserProduct returns how many paid orders the user has for the product.
func (s *PGStore) CountPaidByUserProduct(ctx context.Context, userID, productID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE user_id = $1 AND product_id = $2 AND status = 'paid'`,
		userID, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count paid orders: %w", err)
	}
	return count, nil
}

var _ Store = (*PGStore)(nil)
