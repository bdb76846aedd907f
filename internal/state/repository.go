/*

Repository is the storage boundary for the tracker. Analytics never reaches
into the database: handlers pull snapshots through this interface and fold
over them, which keeps the engine and aggregator testable without a live
store.

*/

package state

import (
	"context"
	"errors"

	"github.com/pooltrack/pooltrack/internal/types"
)

// ErrNotFound indicates the requested pool or entry does not exist for
// this owner. Requesting an update for a missing identifier is a caller
// bug and surfaces as this error.
var ErrNotFound = errors.New("record not found")

// InitialValues carries the "initial" fields of a pool edit. Any non-nil
// field retroactively rewrites the pool's earliest entry rather than
// creating a new one.
type InitialValues struct {
	PositionValueUSD      *float64
	FeesAccumulatedTokenA *float64
	FeesAccumulatedTokenB *float64
}

// Repository provides owner-scoped access to pools, entries and settings.
// Entry listings are always ordered ascending by date.
type Repository interface {
	Pools(ctx context.Context, ownerID string) ([]types.Pool, error)
	Pool(ctx context.Context, poolID, ownerID string) (types.Pool, error)
	Entries(ctx context.Context, ownerID string) ([]types.DailyEntry, error)
	PoolEntries(ctx context.Context, poolID, ownerID string) ([]types.DailyEntry, error)

	// CreatePool writes the pool and its first entry atomically: either
	// both records land or neither does.
	CreatePool(ctx context.Context, pool types.Pool, firstEntry types.DailyEntry) error
	UpdatePool(ctx context.Context, pool types.Pool, initial *InitialValues) error
	// DeletePool removes the pool and cascade-deletes all its entries.
	DeletePool(ctx context.Context, poolID, ownerID string) error

	// UpsertEntry inserts the entry or, when one already exists for the
	// same (poolID, date), overwrites it.
	UpsertEntry(ctx context.Context, entry types.DailyEntry) error
	DeleteEntry(ctx context.Context, entryID, ownerID string) error

	Settings(ctx context.Context, ownerID string) (types.UserSettings, error)
	SaveSettings(ctx context.Context, settings types.UserSettings) error
}
