package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shortkki/shorts-feed/app/bookmark"
	"github.com/shortkki/shorts-feed/app/feed"
	"github.com/shortkki/shorts-feed/app/playback"
)

// renderWindow is how many items on either side of the active index keep a
// mounted player; anything further out is unmounted by virtualization.
const renderWindow = 2

type Options struct {
	SettleDelay     time.Duration
	EstimatedLength float64
	Notifier        bookmark.Notifier
}

// Session is the screen-level controller for one shorts feed. It owns the
// only state shared across items (active index, mute flag, lifecycle gate)
// and wires the assembler, viewport tracker, per-item playback controllers
// and the bookmark engine together. Items request changes through its
// methods and never write shared state directly.
type Session struct {
	assembler *feed.Assembler
	bookmarks *bookmark.Engine
	gate      *playback.Gate
	tracker   *ViewportTracker
	factory   playback.PlayerFactory
	notifier  bookmark.Notifier

	settleDelay time.Duration

	mu          sync.Mutex
	controllers map[string]*playback.Controller // keyed by item id
	activeIndex int
	muted       bool
	closed      bool
}

func New(assembler *feed.Assembler, bookmarks *bookmark.Engine, factory playback.PlayerFactory, opts Options) *Session {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 300 * time.Millisecond
	}
	if opts.EstimatedLength <= 0 {
		opts.EstimatedLength = 780
	}

	return &Session{
		assembler:   assembler,
		bookmarks:   bookmarks,
		gate:        playback.NewGate(),
		tracker:     NewViewportTracker(opts.EstimatedLength),
		factory:     factory,
		notifier:    opts.Notifier,
		settleDelay: opts.SettleDelay,
		controllers: make(map[string]*playback.Controller),
	}
}

// Start performs the initial feed load. The screen is not yet focused;
// playback begins on the first focus event.
func (s *Session) Start(ctx context.Context) error {
	if err := s.assembler.Load(ctx); err != nil {
		return err
	}
	s.syncActive(ctx)
	return nil
}

func (s *Session) Tracker() *ViewportTracker { return s.tracker }

func (s *Session) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIndex
}

func (s *Session) ActiveItem() (feed.Item, bool) {
	return s.assembler.ItemAt(s.ActiveIndex())
}

func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Controller returns (creating on demand) the playback controller for the
// item at an index, or nil when the index is out of range.
func (s *Session) Controller(index int) *playback.Controller {
	item, ok := s.assembler.ItemAt(index)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controllerLocked(item)
}

func (s *Session) controllerLocked(item feed.Item) *playback.Controller {
	c, ok := s.controllers[item.ID]
	if !ok {
		c = playback.NewController(item.ID, item.VideoID, s.factory, s.settleDelay)
		c.SetMuted(s.muted)
		s.controllers[item.ID] = c
	}
	return c
}

// Lifecycle events

func (s *Session) HandleScreenFocus()   { s.applyGate(playback.EventScreenFocus) }
func (s *Session) HandleScreenBlur()    { s.applyGate(playback.EventScreenBlur) }
func (s *Session) HandleAppForeground() { s.applyGate(playback.EventAppForeground) }
func (s *Session) HandleAppBackground() { s.applyGate(playback.EventAppBackground) }

func (s *Session) applyGate(event playback.GateEvent) {
	state := s.gate.Apply(event)
	slog.Debug("Lifecycle event", "event", event, "phase", state.Phase, "epoch", state.Epoch)
	s.reevaluate()
}

// HandleViewability feeds a viewability change from the list. A new active
// index re-gates playback, syncs bookmark state for the item and may trigger
// a curated-page prefetch.
func (s *Session) HandleViewability(ctx context.Context, entries []Viewable) {
	index, ok := s.tracker.ActiveIndex(entries)
	if !ok {
		return
	}
	s.SetActiveIndex(ctx, index)
}

func (s *Session) SetActiveIndex(ctx context.Context, index int) {
	s.mu.Lock()
	if s.closed || index == s.activeIndex {
		s.mu.Unlock()
		return
	}
	s.activeIndex = index
	s.mu.Unlock()

	s.reevaluate()
	s.syncActive(ctx)

	go func() {
		if _, err := s.assembler.MaybeFetchNext(ctx, index); err != nil {
			slog.Error("Section page fetch failed", "error", err)
			s.notify("추천 레시피를 더 불러오지 못했어요")
		} else {
			s.reevaluate()
		}
	}()
}

// ScrollToStart resolves a deep-link start item and scrolls to it, once per
// (startID, token) pair. Unknown ids render the list from the top.
func (s *Session) ScrollToStart(scroller Scroller, startID, token string) {
	index, ok := s.assembler.ResolveStart(startID, token)
	if !ok {
		return
	}
	s.tracker.ScrollTo(scroller, index)
}

// ToggleMute flips the screen-global mute flag and pushes it to every
// mounted controller.
func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	s.muted = !s.muted
	muted := s.muted
	controllers := s.snapshotLocked()
	s.mu.Unlock()

	for _, c := range controllers {
		c.SetMuted(muted)
	}
	return muted
}

// ToggleBook toggles the active item's membership in a recipe book.
func (s *Session) ToggleBook(ctx context.Context, bookID string) error {
	item, ok := s.ActiveItem()
	if !ok {
		return nil
	}
	return s.bookmarks.ToggleBook(ctx, item.ID, bookID)
}

// BookmarkState returns the synced ownership and save count for the active
// item.
func (s *Session) BookmarkState() ([]string, int, bool) {
	item, ok := s.ActiveItem()
	if !ok {
		return nil, 0, false
	}
	return s.bookmarks.State(item.ID)
}

// Close tears the session down: pending delayed plays are cancelled and no
// further events are processed.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	controllers := s.snapshotLocked()
	s.mu.Unlock()

	for _, c := range controllers {
		c.Close()
	}
}

// reevaluate re-applies the gate decision to every mounted controller. Only
// the controller at the active index may be allowed to play; controllers
// outside the render window are unmounted.
func (s *Session) reevaluate() {
	state := s.gate.State()
	items := s.assembler.Items()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	active := s.activeIndex

	indexByID := make(map[string]int, len(items))
	for i, item := range items {
		indexByID[item.ID] = i
	}

	for id, c := range s.controllers {
		index, present := indexByID[id]
		if !present || index < active-renderWindow || index > active+renderWindow {
			c.Close()
			delete(s.controllers, id)
		}
	}

	// Make sure the window around the active index is mounted.
	for i := active - renderWindow; i <= active+renderWindow; i++ {
		if i < 0 || i >= len(items) {
			continue
		}
		s.controllerLocked(items[i])
	}

	type decision struct {
		c       *playback.Controller
		allowed bool
	}
	decisions := make([]decision, 0, len(s.controllers))
	for id, c := range s.controllers {
		index := indexByID[id]
		decisions = append(decisions, decision{c, state.AllowedToPlay(index == active)})
	}
	s.mu.Unlock()

	for _, d := range decisions {
		d.c.SetGate(d.allowed, state)
	}
}

// syncActive refreshes bookmark state for the active item in the
// background. Failures surface as a notification inside the engine.
func (s *Session) syncActive(ctx context.Context) {
	item, ok := s.ActiveItem()
	if !ok {
		return
	}
	go func() {
		if err := s.bookmarks.Sync(ctx, item.ID); err != nil {
			slog.Error("Bookmark sync failed", "item", item.ID, "error", err)
		}
	}()
}

func (s *Session) snapshotLocked() []*playback.Controller {
	out := make([]*playback.Controller, 0, len(s.controllers))
	for _, c := range s.controllers {
		out = append(out, c)
	}
	return out
}

func (s *Session) notify(message string) {
	if s.notifier != nil {
		s.notifier.Notify(message)
	}
}
