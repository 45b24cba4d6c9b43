package playback

import (
	"sync"
	"testing"
	"time"
)

const testSettleDelay = 10 * time.Millisecond

type fakePlayer struct {
	mu    sync.Mutex
	calls []string
}

func (p *fakePlayer) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *fakePlayer) Play()            { p.record("play") }
func (p *fakePlayer) Pause()           { p.record("pause") }
func (p *fakePlayer) SeekTo(s float64) { p.record("seek") }
func (p *fakePlayer) Mute()            { p.record("mute") }
func (p *fakePlayer) UnMute()          { p.record("unmute") }

func (p *fakePlayer) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *fakePlayer) count(call string) int {
	n := 0
	for _, c := range p.callLog() {
		if c == call {
			n++
		}
	}
	return n
}

type playerRig struct {
	mu      sync.Mutex
	players []*fakePlayer
}

func (r *playerRig) factory(videoID string) Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &fakePlayer{}
	r.players = append(r.players, p)
	return p
}

func (r *playerRig) current() *fakePlayer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.players[len(r.players)-1]
}

func (r *playerRig) created() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func newTestController(rig *playerRig) *Controller {
	return NewController("item-1", "dQw4w9WgXcQ", rig.factory, testSettleDelay)
}

func TestSettleDelayedPlay(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)
	c.OnReady()

	state := GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 1}
	c.SetGate(true, state)

	p := rig.current()
	if p.count("play") != 0 {
		t.Error("Expected play to wait for the settle delay")
	}
	if p.count("seek") != 1 {
		t.Errorf("Expected one seek before the delay, got %d", p.count("seek"))
	}

	time.Sleep(5 * testSettleDelay)

	if p.count("play") != 1 {
		t.Errorf("Expected exactly one play after the delay, got %d", p.count("play"))
	}
	if c.Status() != StatusPlaying {
		t.Errorf("Expected playing status, got %s", c.Status())
	}
}

func TestStaleEpochCancelsPendingPlay(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)
	c.OnReady()

	c.SetGate(true, GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 1})

	// The user scrolled past before the delay elapsed.
	c.SetGate(false, GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 1})

	time.Sleep(5 * testSettleDelay)

	p := rig.current()
	if p.count("play") != 0 {
		t.Errorf("Expected no orphaned play after a quick scroll-past, got %d", p.count("play"))
	}
	if c.Status() != StatusPaused {
		t.Errorf("Expected paused status, got %s", c.Status())
	}
}

func TestDisallowPausesImmediately(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)
	c.OnReady()

	c.SetGate(true, GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 1})
	time.Sleep(5 * testSettleDelay)

	c.SetGate(false, GateState{Phase: PhaseInactive, Epoch: 1})

	p := rig.current()
	if p.count("pause") != 1 {
		t.Errorf("Expected an immediate pause, got %d pause calls", p.count("pause"))
	}
}

func TestEpochChangeRestartsPlayback(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)
	c.OnReady()

	c.SetGate(true, GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 1})
	time.Sleep(5 * testSettleDelay)

	p := rig.current()
	seeks := p.count("seek")

	// Same allowed flag, new epoch: must seek to zero and play again.
	c.SetGate(true, GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 2})
	time.Sleep(5 * testSettleDelay)

	if p.count("seek") != seeks+1 {
		t.Errorf("Expected a restart seek on epoch change, got %d seeks", p.count("seek"))
	}
	if p.count("play") != 2 {
		t.Errorf("Expected a second play on epoch change, got %d", p.count("play"))
	}
}

func TestResumeGenerationForcesRemount(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)
	c.OnReady()

	keyBefore := c.MountKey()
	c.SetGate(true, GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 1})

	// Background then foreground: epoch and generation both advance.
	c.SetGate(true, GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 2, ResumeGeneration: 1})

	if c.MountKey() == keyBefore {
		t.Error("Expected a changed mount key after resume")
	}
	if rig.created() != 2 {
		t.Fatalf("Expected a fresh player instance after resume, got %d total", rig.created())
	}
	if c.Status() != StatusLoading {
		t.Errorf("Expected the fresh player to be loading, got %s", c.Status())
	}

	// The fresh player plays once it reports ready.
	c.OnReady()
	time.Sleep(5 * testSettleDelay)
	if rig.current().count("play") != 1 {
		t.Errorf("Expected the fresh player to play after ready, got %d", rig.current().count("play"))
	}
}

func TestEndedLoopsBackToStart(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)
	c.OnReady()

	c.SetGate(true, GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 1})
	time.Sleep(5 * testSettleDelay)

	p := rig.current()
	seeks := p.count("seek")
	plays := p.count("play")

	c.OnStateChange(PlayerEnded)

	if p.count("seek") != seeks+1 || p.count("play") != plays+1 {
		t.Errorf("Expected seek+play on ended, got %v", p.callLog())
	}
	if c.Status() != StatusPlaying {
		t.Errorf("Expected playing after loop, got %s", c.Status())
	}
}

func TestEndedAfterDisallowDoesNotRestart(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)
	c.OnReady()

	c.SetGate(true, GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 1})
	time.Sleep(5 * testSettleDelay)

	// The user scrolls past as the video finishes; the pause command and the
	// ENDED event race, and ENDED arrives last.
	c.SetGate(false, GateState{Phase: PhaseActiveForeground, ScreenFocused: true, Epoch: 1})

	p := rig.current()
	plays := p.count("play")

	c.OnStateChange(PlayerEnded)

	if p.count("play") != plays {
		t.Errorf("Expected no play on ended while disallowed, got %v", p.callLog())
	}
	if c.Status() != StatusPaused {
		t.Errorf("Expected paused after stale ended, got %s", c.Status())
	}
}

func TestMuteAppliedOnReadyAndOnChange(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)

	// Before ready the mute flag is only recorded.
	c.SetMuted(true)
	p := rig.current()
	if p.count("mute") != 0 {
		t.Error("Expected mute to wait for ready")
	}

	c.OnReady()
	if p.count("mute") != 1 {
		t.Errorf("Expected mute applied on ready, got %d", p.count("mute"))
	}

	c.SetMuted(false)
	if p.count("unmute") != 1 {
		t.Errorf("Expected unmute applied while ready, got %d", p.count("unmute"))
	}
}

func TestThumbnailStates(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)

	// Loading: plain thumbnail, no dim.
	show, dimmed := c.ShowThumbnail()
	if !show || dimmed {
		t.Errorf("Expected plain thumbnail while loading, got show=%v dimmed=%v", show, dimmed)
	}

	c.OnReady()
	show, dimmed = c.ShowThumbnail()
	if !show || !dimmed {
		t.Errorf("Expected dimmed thumbnail while paused, got show=%v dimmed=%v", show, dimmed)
	}

	c.OnStateChange(PlayerPlaying)
	show, _ = c.ShowThumbnail()
	if show {
		t.Error("Expected no thumbnail while playing")
	}
}

func TestTogglePlay(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)

	// Taps before ready are ignored.
	c.TogglePlay()
	if rig.current().count("play") != 0 {
		t.Error("Expected tap before ready to be ignored")
	}

	c.OnReady()
	c.TogglePlay()
	if c.Status() != StatusPlaying {
		t.Errorf("Expected playing after tap, got %s", c.Status())
	}
	c.TogglePlay()
	if c.Status() != StatusPaused {
		t.Errorf("Expected paused after second tap, got %s", c.Status())
	}
}

func TestBufferingKeepsStatus(t *testing.T) {
	rig := &playerRig{}
	c := newTestController(rig)
	c.OnReady()
	c.OnStateChange(PlayerPlaying)
	c.OnStateChange(PlayerBuffering)
	if c.Status() != StatusPlaying {
		t.Errorf("Expected buffering to keep status, got %s", c.Status())
	}
}

func TestWatchURLs(t *testing.T) {
	native, web := WatchURLs("dQw4w9WgXcQ")
	if native != "vnd.youtube://dQw4w9WgXcQ" {
		t.Errorf("Unexpected native URL: %s", native)
	}
	if web != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("Unexpected web URL: %s", web)
	}
}
