// ./internal/state/settings_store.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pooltrack/pooltrack/internal/config"
	"github.com/pooltrack/pooltrack/internal/types"
)

// Settings returns the owner's preferences. Owners without a saved row get
// the configured default exchange rate.
func (s *Postgres) Settings(ctx context.Context, ownerID string) (types.UserSettings, error) {
	var settings types.UserSettings
	settings.OwnerID = ownerID

	err := s.db.QueryRowContext(ctx,
		`SELECT usd_to_brl FROM user_settings WHERE owner_id = $1`, ownerID).
		Scan(&settings.UsdToBRL)
	if errors.Is(err, sql.ErrNoRows) {
		settings.UsdToBRL = config.DefaultUsdToBRL
		return settings, nil
	}
	if err != nil {
		return types.UserSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// SaveSettings writes or overwrites the owner's preferences.
func (s *Postgres) SaveSettings(ctx context.Context, settings types.UserSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_settings (owner_id, usd_to_brl)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO UPDATE SET
			usd_to_brl = EXCLUDED.usd_to_brl,
			updated_at = CURRENT_TIMESTAMP`,
		settings.OwnerID, settings.UsdToBRL)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
