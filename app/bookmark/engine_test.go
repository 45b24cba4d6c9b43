package bookmark

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// memoryClient is a recipe-book collaborator backed by an in-memory store.
type memoryClient struct {
	mu         sync.Mutex
	books      map[string]map[string]struct{} // bookID -> itemIDs
	baseCounts map[string]int
	syncCalls  int
	failure    error
}

func newMemoryClient() *memoryClient {
	return &memoryClient{
		books:      make(map[string]map[string]struct{}),
		baseCounts: make(map[string]int),
	}
}

func (c *memoryClient) BookmarkState(ctx context.Context, itemID string) (*RemoteState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncCalls++
	if c.failure != nil {
		return nil, c.failure
	}

	state := &RemoteState{SaveCount: c.baseCounts[itemID]}
	for bookID, items := range c.books {
		if _, ok := items[itemID]; ok {
			state.OwnedBookIDs = append(state.OwnedBookIDs, bookID)
		}
	}
	if len(state.OwnedBookIDs) > 0 {
		state.SaveCount++
	}
	return state, nil
}

func (c *memoryClient) AddToBook(ctx context.Context, bookID, itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure != nil {
		return c.failure
	}
	if c.books[bookID] == nil {
		c.books[bookID] = make(map[string]struct{})
	}
	c.books[bookID][itemID] = struct{}{}
	return nil
}

func (c *memoryClient) RemoveFromBook(ctx context.Context, bookID, itemID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure != nil {
		return c.failure
	}
	delete(c.books[bookID], itemID)
	return nil
}

func (c *memoryClient) setFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failure = err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func TestSyncIdempotent(t *testing.T) {
	client := newMemoryClient()
	client.baseCounts["item-1"] = 10
	e := NewEngine(client, nil, false)

	if err := e.Sync(context.Background(), "item-1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	owned1, count1, ok := e.State("item-1")
	if !ok {
		t.Fatal("Expected state after sync")
	}

	// Second sync with no intervening mutation is a no-op.
	if err := e.Sync(context.Background(), "item-1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	owned2, count2, _ := e.State("item-1")

	if count1 != count2 || len(owned1) != len(owned2) {
		t.Errorf("Expected identical state, got (%v,%d) then (%v,%d)", owned1, count1, owned2, count2)
	}
	if client.syncCalls != 1 {
		t.Errorf("Expected exactly 1 remote read, got %d", client.syncCalls)
	}
}

func TestToggleBookRoundTrip(t *testing.T) {
	client := newMemoryClient()
	client.baseCounts["item-1"] = 10
	e := NewEngine(client, nil, false)

	if err := e.Sync(context.Background(), "item-1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if err := e.ToggleBook(context.Background(), "item-1", "book-a"); err != nil {
		t.Fatalf("Expected no error on add, got: %v", err)
	}
	owned, count, _ := e.State("item-1")
	if len(owned) != 1 || owned[0] != "book-a" {
		t.Errorf("Expected [book-a], got %v", owned)
	}
	if count != 11 {
		t.Errorf("Expected server count 11 after reconciliation, got %d", count)
	}
	if !e.IsBookmarked("item-1") {
		t.Error("Expected item to read as bookmarked")
	}

	if err := e.ToggleBook(context.Background(), "item-1", "book-a"); err != nil {
		t.Fatalf("Expected no error on remove, got: %v", err)
	}
	owned, count, _ = e.State("item-1")
	if len(owned) != 0 {
		t.Errorf("Expected ownership back to original state, got %v", owned)
	}
	if count != 10 {
		t.Errorf("Expected count back to 10, got %d", count)
	}
}

func TestMockModeLocalArithmetic(t *testing.T) {
	client := newMemoryClient()
	client.baseCounts["item-y"] = 10
	e := NewEngine(client, nil, true)

	if err := e.Sync(context.Background(), "item-y"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	readsAfterSync := client.syncCalls

	// First add bumps the count locally, with no reconciliation read.
	if err := e.ToggleBook(context.Background(), "item-y", "개인"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	owned, count, _ := e.State("item-y")
	if len(owned) != 1 || owned[0] != "개인" {
		t.Errorf("Expected [개인], got %v", owned)
	}
	if count != 11 {
		t.Errorf("Expected locally incremented count 11, got %d", count)
	}
	if client.syncCalls != readsAfterSync {
		t.Errorf("Expected no reconciliation read in mock mode, got %d extra", client.syncCalls-readsAfterSync)
	}

	// A second book does not bump the count again.
	if err := e.ToggleBook(context.Background(), "item-y", "그룹"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	_, count, _ = e.State("item-y")
	if count != 11 {
		t.Errorf("Expected count unchanged at 11 for second book, got %d", count)
	}

	// Subsequent sync is idempotent and leaves the local state alone.
	if err := e.Sync(context.Background(), "item-y"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	owned, count, _ = e.State("item-y")
	if len(owned) != 2 || count != 11 {
		t.Errorf("Expected state unchanged by idempotent sync, got (%v,%d)", owned, count)
	}
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	client := newMemoryClient()
	client.baseCounts["item-1"] = 5
	notifier := &recordingNotifier{}
	e := NewEngine(client, notifier, false)

	if err := e.Sync(context.Background(), "item-1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	client.setFailure(fmt.Errorf("network down"))

	err := e.ToggleBook(context.Background(), "item-1", "book-a")
	if err == nil {
		t.Fatal("Expected an error from the failed mutation")
	}

	owned, count, _ := e.State("item-1")
	if len(owned) != 0 || count != 5 {
		t.Errorf("Expected state untouched after failure, got (%v,%d)", owned, count)
	}
	if notifier.count() != 1 {
		t.Errorf("Expected one failure notification, got %d", notifier.count())
	}
}

func TestSyncFailureNotifies(t *testing.T) {
	client := newMemoryClient()
	client.setFailure(fmt.Errorf("network down"))
	notifier := &recordingNotifier{}
	e := NewEngine(client, notifier, false)

	if err := e.Sync(context.Background(), "item-1"); err == nil {
		t.Fatal("Expected sync error")
	}
	if notifier.count() != 1 {
		t.Errorf("Expected one failure notification, got %d", notifier.count())
	}
	if _, _, ok := e.State("item-1"); ok {
		t.Error("Expected no state after failed sync")
	}
}

// scriptedClient delivers bookmark-state responses through per-call gates so
// completions can be reordered.
type scriptedClient struct {
	mu    sync.Mutex
	n     int
	gates map[int]chan *RemoteState
}

func (c *scriptedClient) BookmarkState(ctx context.Context, itemID string) (*RemoteState, error) {
	c.mu.Lock()
	c.n++
	gate := c.gates[c.n]
	c.mu.Unlock()
	if gate != nil {
		return <-gate, nil
	}
	return &RemoteState{}, nil
}

func (c *scriptedClient) AddToBook(ctx context.Context, bookID, itemID string) error { return nil }
func (c *scriptedClient) RemoveFromBook(ctx context.Context, bookID, itemID string) error {
	return nil
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestStaleSyncCompletionDiscarded(t *testing.T) {
	first := make(chan *RemoteState, 1)
	stale := make(chan *RemoteState)
	fresh := make(chan *RemoteState)
	client := &scriptedClient{gates: map[int]chan *RemoteState{1: first, 2: stale, 3: fresh}}
	e := NewEngine(client, nil, false)

	first <- &RemoteState{SaveCount: 10}
	if err := e.Sync(context.Background(), "item-x"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// First toggle's reconciliation read stalls.
	go func() {
		defer wg.Done()
		e.ToggleBook(context.Background(), "item-x", "book-a")
	}()
	waitForCalls(t, client, 2)

	// Second toggle's read goes out afterwards and completes first, with
	// the latest server truth.
	go func() {
		defer wg.Done()
		e.ToggleBook(context.Background(), "item-x", "book-b")
	}()
	waitForCalls(t, client, 3)

	fresh <- &RemoteState{OwnedBookIDs: []string{"book-a", "book-b"}, SaveCount: 12}
	// The first read finally returns older truth; it must be discarded.
	stale <- &RemoteState{OwnedBookIDs: []string{"book-a"}, SaveCount: 11}
	wg.Wait()

	owned, count, _ := e.State("item-x")
	if len(owned) != 2 || count != 12 {
		t.Errorf("Expected the later completion to stand (2 books, count 12), got (%v,%d)", owned, count)
	}
}

func waitForCalls(t *testing.T, client *scriptedClient, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for client.callCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %d client calls", n)
		}
		time.Sleep(time.Millisecond)
	}
}
