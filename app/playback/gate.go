package playback

import (
	"sync"
)

// Lifecycle gate types

type Phase string

const (
	PhaseInactive         Phase = "inactive"
	PhaseActiveForeground Phase = "active_foreground"
	PhaseActiveBackground Phase = "active_background"
)

type GateEvent string

const (
	EventScreenFocus   GateEvent = "screen_focus"
	EventScreenBlur    GateEvent = "screen_blur"
	EventAppForeground GateEvent = "app_foreground"
	EventAppBackground GateEvent = "app_background"
)

// GateState is the process-wide lifecycle state. Epoch invalidates stale
// delayed actions; ResumeGeneration forces a full player remount after the
// app returns from background.
type GateState struct {
	Phase            Phase
	ScreenFocused    bool
	Epoch            uint64
	ResumeGeneration uint64
}

// Transition is the pure lifecycle transition function.
func Transition(s GateState, event GateEvent) GateState {
	switch event {
	case EventScreenFocus:
		s.ScreenFocused = true
		s.Phase = PhaseActiveForeground
		s.Epoch++

	case EventScreenBlur:
		s.ScreenFocused = false
		s.Phase = PhaseInactive

	case EventAppForeground:
		s.Epoch++
		s.ResumeGeneration++
		if s.ScreenFocused {
			s.Phase = PhaseActiveForeground
		} else {
			s.Phase = PhaseInactive
		}

	case EventAppBackground:
		if s.Phase == PhaseActiveForeground {
			s.Phase = PhaseActiveBackground
		}
	}

	return s
}

// Gate wraps the transition function with shared access for the screen
// controller and its item controllers.
type Gate struct {
	mu    sync.Mutex
	state GateState
}

func NewGate() *Gate {
	return &Gate{state: GateState{Phase: PhaseInactive}}
}

func (g *Gate) Apply(event GateEvent) GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Transition(g.state, event)
	return g.state
}

func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// AllowedToPlay reports whether the item at the active index may run
// playback under the current lifecycle state.
func (s GateState) AllowedToPlay(isActiveIndex bool) bool {
	return isActiveIndex && s.Phase == PhaseActiveForeground
}
