package bookmark

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Client is the recipe-book collaborator.
type Client interface {
	BookmarkState(ctx context.Context, itemID string) (*RemoteState, error)
	AddToBook(ctx context.Context, bookID, itemID string) error
	RemoveFromBook(ctx context.Context, bookID, itemID string) error
}

// RemoteState is the server-reported ownership and save count for one item.
type RemoteState struct {
	OwnedBookIDs []string
	SaveCount    int
}

// Notifier surfaces transient failures to the user. Failures never block the
// feed or propagate out of the engine's callers.
type Notifier interface {
	Notify(message string)
}

type itemState struct {
	owned     map[string]struct{}
	saveCount int
	synced    bool

	// Monotonic sync versions guard against a stale completion overwriting
	// a newer one when syncs for the same item race.
	issuedVersion  uint64
	appliedVersion uint64
}

// Engine maintains, per feed item, which of the user's recipe books contain
// it, and applies add/remove mutations with re-sync reconciliation. State is
// a read-through cache keyed by item id; it grows with the feed and is never
// evicted within a session.
//
// In mock mode the save count is maintained by local arithmetic on the
// owned-by-at-least-one-book transition, and no reconciliation sync is
// issued; live mode always takes the server truth after a mutation. The two
// paths are deliberately separate.
type Engine struct {
	client   Client
	notifier Notifier
	mockMode bool

	mu    sync.Mutex
	items map[string]*itemState
}

func NewEngine(client Client, notifier Notifier, mockMode bool) *Engine {
	return &Engine{
		client:   client,
		notifier: notifier,
		mockMode: mockMode,
		items:    make(map[string]*itemState),
	}
}

// Sync fetches ownership and save count for an item. Syncing an item already
// synced this session is a no-op; mutations force a fresh read through
// resync.
func (e *Engine) Sync(ctx context.Context, itemID string) error {
	e.mu.Lock()
	state := e.stateLocked(itemID)
	if state.synced {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	return e.resync(ctx, itemID)
}

func (e *Engine) resync(ctx context.Context, itemID string) error {
	e.mu.Lock()
	state := e.stateLocked(itemID)
	state.issuedVersion++
	version := state.issuedVersion
	e.mu.Unlock()

	remote, err := e.client.BookmarkState(ctx, itemID)
	if err != nil {
		e.notify("북마크 정보를 불러오지 못했어요")
		return fmt.Errorf("failed to sync bookmark state for %s: %w", itemID, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if version < state.appliedVersion {
		slog.Debug("Discarding stale bookmark sync", "item", itemID, "version", version, "applied", state.appliedVersion)
		return nil
	}
	state.appliedVersion = version
	state.synced = true
	state.saveCount = remote.SaveCount
	state.owned = make(map[string]struct{}, len(remote.OwnedBookIDs))
	for _, id := range remote.OwnedBookIDs {
		state.owned[id] = struct{}{}
	}

	return nil
}

// ToggleBook adds the item to the book, or removes it when already present.
// Local state changes only after the mutation succeeds; a failed call leaves
// the ownership set exactly as it was.
func (e *Engine) ToggleBook(ctx context.Context, itemID, bookID string) error {
	e.mu.Lock()
	state := e.stateLocked(itemID)
	synced := state.synced
	_, owned := state.owned[bookID]
	e.mu.Unlock()

	if !synced {
		if err := e.Sync(ctx, itemID); err != nil {
			return err
		}
		e.mu.Lock()
		_, owned = state.owned[bookID]
		e.mu.Unlock()
	}

	if owned {
		if err := e.client.RemoveFromBook(ctx, bookID, itemID); err != nil {
			e.notify("레시피북에서 빼지 못했어요")
			return fmt.Errorf("failed to remove %s from book %s: %w", itemID, bookID, err)
		}
		e.applyMutation(itemID, bookID, false)
	} else {
		if err := e.client.AddToBook(ctx, bookID, itemID); err != nil {
			e.notify("레시피북에 담지 못했어요")
			return fmt.Errorf("failed to add %s to book %s: %w", itemID, bookID, err)
		}
		e.applyMutation(itemID, bookID, true)
	}

	if e.mockMode {
		// Local arithmetic is the only source of truth in mock mode.
		return nil
	}
	return e.resync(ctx, itemID)
}

// applyMutation performs the optimistic set update after a successful call.
// Mock mode also adjusts the save count on the bookmarked-boolean transition.
func (e *Engine) applyMutation(itemID, bookID string, added bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.stateLocked(itemID)
	wasBookmarked := len(state.owned) > 0

	if added {
		state.owned[bookID] = struct{}{}
	} else {
		delete(state.owned, bookID)
	}

	if e.mockMode {
		isBookmarked := len(state.owned) > 0
		if !wasBookmarked && isBookmarked {
			state.saveCount++
		} else if wasBookmarked && !isBookmarked {
			state.saveCount--
		}
	}
}

// State returns the owned book ids (sorted) and save count for an item.
func (e *Engine) State(itemID string) ([]string, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.items[itemID]
	if !ok || !state.synced {
		return nil, 0, false
	}

	owned := make([]string, 0, len(state.owned))
	for id := range state.owned {
		owned = append(owned, id)
	}
	sort.Strings(owned)
	return owned, state.saveCount, true
}

// IsBookmarked reports the owned-by-at-least-one-book boolean shown on the
// feed item.
func (e *Engine) IsBookmarked(itemID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.items[itemID]
	return ok && len(state.owned) > 0
}

func (e *Engine) stateLocked(itemID string) *itemState {
	state, ok := e.items[itemID]
	if !ok {
		state = &itemState{owned: make(map[string]struct{})}
		e.items[itemID] = state
	}
	return state
}

func (e *Engine) notify(message string) {
	if e.notifier != nil {
		e.notifier.Notify(message)
	}
}
