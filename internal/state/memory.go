/*

In-memory Repository implementation. Backs the web-layer tests and local
development without a database; mutation semantics (atomic pool+entry
creation, (poolID, date) upsert, cascade delete) mirror the Postgres
implementation, and mutations publish to the optional Feed the same way
the database triggers do.

*/

package state

import (
	"context"
	"sort"
	"sync"

	"github.com/pooltrack/pooltrack/internal/types"
)

// Memory is a map-backed Repository, safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	pools    map[string]types.Pool
	entries  map[string]types.DailyEntry
	settings map[string]types.UserSettings
	feed     *Feed

	defaultUsdToBRL float64
}

// NewMemory creates an empty in-memory repository. feed may be nil.
func NewMemory(feed *Feed, defaultUsdToBRL float64) *Memory {
	return &Memory{
		pools:           make(map[string]types.Pool),
		entries:         make(map[string]types.DailyEntry),
		settings:        make(map[string]types.UserSettings),
		feed:            feed,
		defaultUsdToBRL: defaultUsdToBRL,
	}
}

func (m *Memory) publish(ownerID, collection string) {
	if m.feed != nil {
		m.feed.Publish(Event{OwnerID: ownerID, Collection: collection})
	}
}

func (m *Memory) Pools(ctx context.Context, ownerID string) ([]types.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pools []types.Pool
	for _, p := range m.pools {
		if p.OwnerID == ownerID {
			pools = append(pools, p)
		}
	}
	sort.Slice(pools, func(i, j int) bool { return pools[i].CreatedAt < pools[j].CreatedAt })
	return pools, nil
}

func (m *Memory) Pool(ctx context.Context, poolID, ownerID string) (types.Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[poolID]
	if !ok || p.OwnerID != ownerID {
		return types.Pool{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) Entries(ctx context.Context, ownerID string) ([]types.DailyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []types.DailyEntry
	for _, e := range m.entries {
		if e.OwnerID == ownerID {
			entries = append(entries, e)
		}
	}
	sortEntries(entries)
	return entries, nil
}

func (m *Memory) PoolEntries(ctx context.Context, poolID, ownerID string) ([]types.DailyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []types.DailyEntry
	for _, e := range m.entries {
		if e.PoolID == poolID && e.OwnerID == ownerID {
			entries = append(entries, e)
		}
	}
	sortEntries(entries)
	return entries, nil
}

func (m *Memory) CreatePool(ctx context.Context, pool types.Pool, firstEntry types.DailyEntry) error {
	m.mu.Lock()
	m.pools[pool.ID] = pool
	m.entries[firstEntry.ID] = firstEntry
	m.mu.Unlock()

	m.publish(pool.OwnerID, "pools")
	m.publish(firstEntry.OwnerID, "daily_entries")
	return nil
}

func (m *Memory) UpdatePool(ctx context.Context, pool types.Pool, initial *InitialValues) error {
	m.mu.Lock()
	existing, ok := m.pools[pool.ID]
	if !ok || existing.OwnerID != pool.OwnerID {
		m.mu.Unlock()
		return ErrNotFound
	}

	// Identity and creation time are immutable.
	pool.CreatedAt = existing.CreatedAt
	m.pools[pool.ID] = pool

	if initial != nil {
		if earliest := m.earliestEntryLocked(pool.ID); earliest != nil {
			e := *earliest
			if initial.PositionValueUSD != nil {
				e.PositionValueUSD = *initial.PositionValueUSD
			}
			if initial.FeesAccumulatedTokenA != nil {
				e.FeesAccumulatedTokenA = *initial.FeesAccumulatedTokenA
			}
			if initial.FeesAccumulatedTokenB != nil {
				e.FeesAccumulatedTokenB = *initial.FeesAccumulatedTokenB
			}
			m.entries[e.ID] = e
		}
	}
	m.mu.Unlock()

	m.publish(pool.OwnerID, "pools")
	return nil
}

func (m *Memory) DeletePool(ctx context.Context, poolID, ownerID string) error {
	m.mu.Lock()
	p, ok := m.pools[poolID]
	if !ok || p.OwnerID != ownerID {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.pools, poolID)
	for id, e := range m.entries {
		if e.PoolID == poolID {
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()

	m.publish(ownerID, "pools")
	return nil
}

func (m *Memory) UpsertEntry(ctx context.Context, entry types.DailyEntry) error {
	m.mu.Lock()
	// Overwrite any existing entry for the same (pool, date), keeping its id.
	for id, e := range m.entries {
		if e.PoolID == entry.PoolID && e.Date == entry.Date {
			entry.ID = id
			break
		}
	}
	m.entries[entry.ID] = entry
	m.mu.Unlock()

	m.publish(entry.OwnerID, "daily_entries")
	return nil
}

func (m *Memory) DeleteEntry(ctx context.Context, entryID, ownerID string) error {
	m.mu.Lock()
	e, ok := m.entries[entryID]
	if !ok || e.OwnerID != ownerID {
		m.mu.Unlock()
		return ErrNotFound
	}
	delete(m.entries, entryID)
	m.mu.Unlock()

	m.publish(ownerID, "daily_entries")
	return nil
}

func (m *Memory) Settings(ctx context.Context, ownerID string) (types.UserSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.settings[ownerID]; ok {
		return s, nil
	}
	return types.UserSettings{OwnerID: ownerID, UsdToBRL: m.defaultUsdToBRL}, nil
}

func (m *Memory) SaveSettings(ctx context.Context, settings types.UserSettings) error {
	m.mu.Lock()
	m.settings[settings.OwnerID] = settings
	m.mu.Unlock()

	m.publish(settings.OwnerID, "user_settings")
	return nil
}

func (m *Memory) earliestEntryLocked(poolID string) *types.DailyEntry {
	var earliest *types.DailyEntry
	for id := range m.entries {
		e := m.entries[id]
		if e.PoolID != poolID {
			continue
		}
		if earliest == nil || e.Date < earliest.Date {
			earliest = &e
		}
	}
	return earliest
}

func sortEntries(entries []types.DailyEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].PoolID < entries[j].PoolID
	})
}
