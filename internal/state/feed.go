/*

Real-time change feed. Database triggers raise a NOTIFY for every mutation
of pools, daily_entries or user_settings; a pq.Listener turns those into
Events fanned out to per-owner subscribers. The web layer forwards them to
websocket clients so dashboards recompute without polling.

*/

package state

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/pooltrack/pooltrack/internal/logger"
)

var feedLogger = logger.GetForComponent("change_feed")

const notifyChannel = "tracker_changes"

// Event describes one mutation: which owner's data changed and in which
// collection. Subscribers are expected to refetch snapshots, not to patch
// local state from the event.
type Event struct {
	OwnerID    string `json:"ownerId"`
	Collection string `json:"collection"`
}

// Feed fans change events out to per-owner subscribers.
type Feed struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewFeed creates an empty feed. Call Run to attach it to the database.
func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers for an owner's change events. The returned cancel
// function must be called to release the subscription.
func (f *Feed) Subscribe(ownerID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	f.mu.Lock()
	if f.subs[ownerID] == nil {
		f.subs[ownerID] = make(map[chan Event]struct{})
	}
	f.subs[ownerID][ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.subs[ownerID], ch)
		if len(f.subs[ownerID]) == 0 {
			delete(f.subs, ownerID)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to the owner's subscribers. Slow subscribers
// are skipped rather than blocking delivery; they recover on their next
// snapshot fetch.
func (f *Feed) Publish(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for ch := range f.subs[ev.OwnerID] {
		select {
		case ch <- ev:
		default:
			feedLogger.Warn().
				Str("ownerId", ev.OwnerID).
				Msg("Dropping change event for slow subscriber")
		}
	}
}

// Run listens on the database notification channel until ctx is cancelled.
// Intended to run in its own goroutine; reconnects are handled by pq.
func (f *Feed) Run(ctx context.Context) error {
	listener := pq.NewListener(connInfo, 10*time.Second, time.Minute,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				feedLogger.Error().Err(err).Int("event", int(event)).Msg("Listener connection event")
			}
		})
	defer listener.Close()

	if err := listener.Listen(notifyChannel); err != nil {
		return err
	}
	feedLogger.Info().Str("channel", notifyChannel).Msg("Change feed listening")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-listener.Notify:
			if n == nil {
				// Connection was re-established; subscribers refetch on
				// their next event, nothing to replay.
				continue
			}
			ownerID, collection, ok := strings.Cut(n.Extra, ":")
			if !ok {
				feedLogger.Warn().Str("payload", n.Extra).Msg("Malformed change notification")
				continue
			}
			f.Publish(Event{OwnerID: ownerID, Collection: collection})
		case <-time.After(90 * time.Second):
			// Periodic liveness check on an otherwise idle connection.
			go listener.Ping()
		}
	}
}
