// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pooltrack/pooltrack/internal/config"
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// connInfo is kept for the NOTIFY listener, which needs its own connection.
var connInfo string

// InitDB initializes the database connection pool.
func InitDB(cfg config.DBConfig) error {
	connInfo = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", connInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS pools (
			id UUID PRIMARY KEY,
			owner_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			name TEXT NOT NULL,
			token_a TEXT NOT NULL,
			token_b TEXT NOT NULL,
			token_a_id TEXT NOT NULL,
			token_b_id TEXT NOT NULL,
			fee_tier TEXT NOT NULL,
			range_min DOUBLE PRECISION NOT NULL CHECK (range_min >= 0),
			range_max DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT chk_pools_range CHECK (range_max > range_min)
		);
		CREATE INDEX IF NOT EXISTS idx_pools_owner ON pools(owner_id, created_at);

		CREATE TABLE IF NOT EXISTS daily_entries (
			id UUID PRIMARY KEY,
			pool_id UUID NOT NULL REFERENCES pools(id) ON DELETE CASCADE,
			owner_id TEXT NOT NULL,
			entry_date DATE NOT NULL,
			position_value_usd DOUBLE PRECISION NOT NULL CHECK (position_value_usd >= 0),
			fees_accumulated_token_a DOUBLE PRECISION NOT NULL CHECK (fees_accumulated_token_a >= 0),
			fees_accumulated_token_b DOUBLE PRECISION NOT NULL CHECK (fees_accumulated_token_b >= 0),
			fees_withdrawn_usd DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (fees_withdrawn_usd >= 0),
			note TEXT NOT NULL DEFAULT '',
			token_a_price_usd DOUBLE PRECISION NOT NULL,
			token_b_price_usd DOUBLE PRECISION NOT NULL,
			usd_to_brl DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_daily_entries_pool_date UNIQUE (pool_id, entry_date)
		);
		CREATE INDEX IF NOT EXISTS idx_daily_entries_owner_date ON daily_entries(owner_id, entry_date);
		CREATE INDEX IF NOT EXISTS idx_daily_entries_pool_date ON daily_entries(pool_id, entry_date);

		CREATE TABLE IF NOT EXISTS user_settings (
			owner_id TEXT PRIMARY KEY,
			usd_to_brl DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Change feed: every mutation raises a notification carrying the
		-- owner id and table name, consumed by the Feed listener.
		CREATE OR REPLACE FUNCTION notify_tracker_change() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('tracker_changes',
				COALESCE(NEW.owner_id, OLD.owner_id) || ':' || TG_TABLE_NAME);
			RETURN COALESCE(NEW, OLD);
		END;
		$$ LANGUAGE plpgsql;

		DROP TRIGGER IF EXISTS trg_pools_notify ON pools;
		CREATE TRIGGER trg_pools_notify
			AFTER INSERT OR UPDATE OR DELETE ON pools
			FOR EACH ROW EXECUTE FUNCTION notify_tracker_change();

		DROP TRIGGER IF EXISTS trg_daily_entries_notify ON daily_entries;
		CREATE TRIGGER trg_daily_entries_notify
			AFTER INSERT OR UPDATE OR DELETE ON daily_entries
			FOR EACH ROW EXECUTE FUNCTION notify_tracker_change();

		DROP TRIGGER IF EXISTS trg_user_settings_notify ON user_settings;
		CREATE TRIGGER trg_user_settings_notify
			AFTER INSERT OR UPDATE OR DELETE ON user_settings
			FOR EACH ROW EXECUTE FUNCTION notify_tracker_change();
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
