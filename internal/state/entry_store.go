// ./internal/state/entry_store.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pooltrack/pooltrack/internal/types"
)

const entryColumns = `id, pool_id, owner_id, to_char(entry_date, 'YYYY-MM-DD'),
	position_value_usd, fees_accumulated_token_a, fees_accumulated_token_b,
	fees_withdrawn_usd, note, token_a_price_usd, token_b_price_usd, usd_to_brl, updated_at`

func scanEntries(rows *sql.Rows) ([]types.DailyEntry, error) {
	var entries []types.DailyEntry
	for rows.Next() {
		var e types.DailyEntry
		var updatedAt time.Time
		err := rows.Scan(&e.ID, &e.PoolID, &e.OwnerID, &e.Date,
			&e.PositionValueUSD, &e.FeesAccumulatedTokenA, &e.FeesAccumulatedTokenB,
			&e.FeesWithdrawnUSD, &e.Note, &e.TokenAPriceUSD, &e.TokenBPriceUSD,
			&e.UsdToBRL, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		e.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Entries returns all of the owner's entries across pools, ordered
// ascending by date.
func (s *Postgres) Entries(ctx context.Context, ownerID string) ([]types.DailyEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM daily_entries
		WHERE owner_id = $1 ORDER BY entry_date, pool_id`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// PoolEntries returns one pool's entries ordered ascending by date.
func (s *Postgres) PoolEntries(ctx context.Context, poolID, ownerID string) ([]types.DailyEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM daily_entries
		WHERE pool_id = $1 AND owner_id = $2 ORDER BY entry_date`
	rows, err := s.db.QueryContext(ctx, query, poolID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// insertEntry performs the (pool_id, entry_date) upsert inside the given
// executor, which may be a transaction.
func insertEntry(ctx context.Context, tx *sql.Tx, e types.DailyEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO daily_entries (id, pool_id, owner_id, entry_date,
			position_value_usd, fees_accumulated_token_a, fees_accumulated_token_b,
			fees_withdrawn_usd, note, token_a_price_usd, token_b_price_usd, usd_to_brl)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (pool_id, entry_date) DO UPDATE SET
			position_value_usd = EXCLUDED.position_value_usd,
			fees_accumulated_token_a = EXCLUDED.fees_accumulated_token_a,
			fees_accumulated_token_b = EXCLUDED.fees_accumulated_token_b,
			fees_withdrawn_usd = EXCLUDED.fees_withdrawn_usd,
			note = EXCLUDED.note,
			token_a_price_usd = EXCLUDED.token_a_price_usd,
			token_b_price_usd = EXCLUDED.token_b_price_usd,
			usd_to_brl = EXCLUDED.usd_to_brl,
			updated_at = CURRENT_TIMESTAMP`,
		e.ID, e.PoolID, e.OwnerID, e.Date,
		e.PositionValueUSD, e.FeesAccumulatedTokenA, e.FeesAccumulatedTokenB,
		e.FeesWithdrawnUSD, e.Note, e.TokenAPriceUSD, e.TokenBPriceUSD, e.UsdToBRL)
	if err != nil {
		return fmt.Errorf("failed to upsert entry for pool %s on %s: %w", e.PoolID, e.Date, err)
	}
	return nil
}

// UpsertEntry saves a daily entry, overwriting any existing entry for the
// same pool and date. The existing record's id is kept on overwrite.
func (s *Postgres) UpsertEntry(ctx context.Context, entry types.DailyEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertEntry(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entry upsert: %w", err)
	}

	storeLogger.Debug().
		Str("poolId", entry.PoolID).
		Str("date", entry.Date).
		Float64("positionValueUSD", entry.PositionValueUSD).
		Msg("Daily entry saved")
	return nil
}

// DeleteEntry removes one entry by id, scoped to the owner.
func (s *Postgres) DeleteEntry(ctx context.Context, entryID, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM daily_entries WHERE id = $1 AND owner_id = $2`, entryID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", entryID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
