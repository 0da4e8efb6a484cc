// Package testutil provides testing utilities for the lot service:
// a PostgreSQL testcontainer with the service schema, sqlmock wrappers,
// and fixture factories.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "pharmadisti_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    // Run tests
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "pharmadisti_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// ApplySchema creates the lot service schema in the container
func (c *PostgresContainer) ApplySchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, lotServiceSchema)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const lotServiceSchema = `
	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		unit VARCHAR(50) NOT NULL DEFAULT 'box',
		volume_per_unit NUMERIC(12,4) NOT NULL CHECK (volume_per_unit >= 0)
	);

	CREATE TABLE IF NOT EXISTS lot_batches (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		lot_code VARCHAR(100) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS storage_rooms (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(255) NOT NULL,
		total_volume NUMERIC(14,4) NOT NULL CHECK (total_volume >= 0),
		remaining_volume NUMERIC(14,4) NOT NULL CHECK (remaining_volume >= 0)
	);

	CREATE TABLE IF NOT EXISTS purchase_orders (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		po_code VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'open'
	);

	CREATE TABLE IF NOT EXISTS purchase_order_lines (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		purchase_order_id UUID NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0)
	);

	CREATE TABLE IF NOT EXISTS product_lots (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		lot_batch_id UUID NOT NULL REFERENCES lot_batches(id),
		product_id UUID NOT NULL REFERENCES products(id),
		storage_room_id UUID NOT NULL REFERENCES storage_rooms(id),
		manufactured_date TIMESTAMPTZ NOT NULL,
		expired_date TIMESTAMPTZ NOT NULL,
		supply_price NUMERIC(14,2) NOT NULL DEFAULT 0,
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (expired_date > manufactured_date)
	);

	CREATE TABLE IF NOT EXISTS received_notes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		code VARCHAR(100) NOT NULL,
		purchase_order_id UUID NOT NULL REFERENCES purchase_orders(id),
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS received_note_details (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		received_note_id UUID NOT NULL REFERENCES received_notes(id) ON DELETE CASCADE,
		product_lot_id UUID NOT NULL REFERENCES product_lots(id),
		actual_received INTEGER NOT NULL CHECK (actual_received >= 1)
	);

	CREATE TABLE IF NOT EXISTS note_checks (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		storage_room_id UUID NOT NULL REFERENCES storage_rooms(id),
		reason TEXT NOT NULL DEFAULT '',
		result VARCHAR(20) NOT NULL DEFAULT 'ok',
		created_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS note_check_details (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		note_check_id UUID NOT NULL REFERENCES note_checks(id) ON DELETE CASCADE,
		product_lot_id UUID NOT NULL REFERENCES product_lots(id),
		storage_quantity INTEGER NOT NULL CHECK (storage_quantity >= 0),
		actual_quantity INTEGER NOT NULL CHECK (actual_quantity >= 0),
		difference_quantity INTEGER NOT NULL CHECK (difference_quantity >= 0),
		processed BOOLEAN NOT NULL DEFAULT FALSE,
		processed_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS user_cache (
		user_id UUID PRIMARY KEY,
		first_name VARCHAR(255) NOT NULL DEFAULT '',
		last_name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255),
		role_name VARCHAR(100),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_product_lots_room ON product_lots(storage_room_id);
	CREATE INDEX IF NOT EXISTS idx_received_notes_po ON received_notes(purchase_order_id);
	CREATE INDEX IF NOT EXISTS idx_note_check_details_check ON note_check_details(note_check_id);
`
