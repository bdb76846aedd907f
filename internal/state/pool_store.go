// ./internal/state/pool_store.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pooltrack/pooltrack/internal/logger"
	"github.com/pooltrack/pooltrack/internal/types"
)

var storeLogger = logger.GetForComponent("state")

// Postgres implements Repository on top of the shared connection pool.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres-backed repository. Call InitDB and
// EnsureSchema first.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const poolColumns = `id, owner_id, platform, name, token_a, token_b,
	token_a_id, token_b_id, fee_tier, range_min, range_max, created_at`

func scanPool(row interface{ Scan(dest ...any) error }) (types.Pool, error) {
	var p types.Pool
	var createdAt time.Time
	err := row.Scan(&p.ID, &p.OwnerID, &p.Platform, &p.Name, &p.TokenA, &p.TokenB,
		&p.TokenAID, &p.TokenBID, &p.FeeTier, &p.RangeMin, &p.RangeMax, &createdAt)
	if err != nil {
		return types.Pool{}, err
	}
	p.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	return p, nil
}

// Pools returns all pools belonging to the owner, oldest first.
func (s *Postgres) Pools(ctx context.Context, ownerID string) ([]types.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE owner_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pools: %w", err)
	}
	defer rows.Close()

	var pools []types.Pool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pool row: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// Pool returns one pool by id, scoped to the owner.
func (s *Postgres) Pool(ctx context.Context, poolID, ownerID string) (types.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM pools WHERE id = $1 AND owner_id = $2`
	p, err := scanPool(s.db.QueryRowContext(ctx, query, poolID, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Pool{}, ErrNotFound
	}
	if err != nil {
		return types.Pool{}, fmt.Errorf("failed to get pool %s: %w", poolID, err)
	}
	return p, nil
}

// CreatePool writes the pool together with its first daily entry in a
// single transaction.
func (s *Postgres) CreatePool(ctx context.Context, pool types.Pool, firstEntry types.DailyEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pools (id, owner_id, platform, name, token_a, token_b,
			token_a_id, token_b_id, fee_tier, range_min, range_max, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::timestamptz)`,
		pool.ID, pool.OwnerID, pool.Platform, pool.Name, pool.TokenA, pool.TokenB,
		pool.TokenAID, pool.TokenBID, pool.FeeTier, pool.RangeMin, pool.RangeMax, pool.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert pool: %w", err)
	}

	if err := insertEntry(ctx, tx, firstEntry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pool creation: %w", err)
	}

	storeLogger.Info().
		Str("poolId", pool.ID).
		Str("name", pool.Name).
		Msg("Pool created with initial entry")
	return nil
}

// UpdatePool rewrites the pool's mutable fields. When initial values are
// supplied, the earliest entry (by date) is rewritten in the same
// transaction instead of inserting a new record.
func (s *Postgres) UpdatePool(ctx context.Context, pool types.Pool, initial *InitialValues) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE pools SET platform = $1, name = $2, token_a = $3, token_b = $4,
			token_a_id = $5, token_b_id = $6, fee_tier = $7, range_min = $8, range_max = $9
		WHERE id = $10 AND owner_id = $11`,
		pool.Platform, pool.Name, pool.TokenA, pool.TokenB,
		pool.TokenAID, pool.TokenBID, pool.FeeTier, pool.RangeMin, pool.RangeMax,
		pool.ID, pool.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update pool: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if initial != nil {
		var earliestID string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM daily_entries WHERE pool_id = $1 AND owner_id = $2
			ORDER BY entry_date LIMIT 1`,
			pool.ID, pool.OwnerID).Scan(&earliestID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// Nothing to rewrite; the caller decides whether to create one.
		case err != nil:
			return fmt.Errorf("failed to find earliest entry: %w", err)
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE daily_entries SET
					position_value_usd = COALESCE($1, position_value_usd),
					fees_accumulated_token_a = COALESCE($2, fees_accumulated_token_a),
					fees_accumulated_token_b = COALESCE($3, fees_accumulated_token_b),
					updated_at = CURRENT_TIMESTAMP
				WHERE id = $4`,
				initial.PositionValueUSD, initial.FeesAccumulatedTokenA,
				initial.FeesAccumulatedTokenB, earliestID)
			if err != nil {
				return fmt.Errorf("failed to rewrite earliest entry: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pool update: %w", err)
	}
	return nil
}

// DeletePool removes the pool; its entries go with it via the cascading
// foreign key, so the whole removal is one atomic statement.
func (s *Postgres) DeletePool(ctx context.Context, poolID, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pools WHERE id = $1 AND owner_id = $2`, poolID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete pool %s: %w", poolID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	storeLogger.Info().Str("poolId", poolID).Msg("Pool deleted with all entries")
	return nil
}
