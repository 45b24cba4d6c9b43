package session

import (
	"math"
	"sync"
)

// activeVisibleFraction is the share of an item that must be on screen for
// it to become the active index.
const activeVisibleFraction = 0.5

// lengthEpsilon is the drift below which a re-measured item length is
// ignored.
const lengthEpsilon = 0.5

// Viewable reports how much of one list item is currently visible.
type Viewable struct {
	Index           int
	VisibleFraction float64
}

// Scroller performs programmatic scrolls on the virtualized list.
// ScrollToIndex may fail when the target item has not been laid out yet.
type Scroller interface {
	ScrollToIndex(index int, offset float64) error
	ScrollToOffset(offset float64)
}

// ViewportTracker resolves which single item is active in a vertically
// paging list, and computes layout offsets for programmatic scrolls. The
// actual on-screen item length is measured asynchronously and may differ
// from the initial estimate.
type ViewportTracker struct {
	mu        sync.Mutex
	estimated float64
	measured  float64
}

func NewViewportTracker(estimatedLength float64) *ViewportTracker {
	return &ViewportTracker{estimated: estimatedLength}
}

// ActiveIndex picks the first item at least half visible. Ties resolve to
// the earliest index.
func (t *ViewportTracker) ActiveIndex(entries []Viewable) (int, bool) {
	best := -1
	for _, entry := range entries {
		if entry.VisibleFraction >= activeVisibleFraction {
			if best == -1 || entry.Index < best {
				best = entry.Index
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// SetMeasuredLength records the real on-screen item length. Drift below the
// epsilon keeps the previous measurement to avoid churning layout offsets.
func (t *ViewportTracker) SetMeasuredLength(length float64) {
	if length <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.measured != 0 && math.Abs(length-t.measured) <= lengthEpsilon {
		return
	}
	t.measured = length
}

// ItemLength returns the measured length when known, else the estimate.
func (t *ViewportTracker) ItemLength() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.measured != 0 {
		return t.measured
	}
	return t.estimated
}

// ScrollTo scrolls to an index, falling back to an average-length offset
// when the indexed scroll fails because the item is not laid out yet.
func (t *ViewportTracker) ScrollTo(s Scroller, index int) {
	length := t.ItemLength()
	if err := s.ScrollToIndex(index, length*float64(index)); err != nil {
		s.ScrollToOffset(length * float64(index))
	}
}
