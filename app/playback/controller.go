package playback

import (
	"fmt"
	"sync"
	"time"
)

// Controller status

type Status string

const (
	StatusLoading Status = "loading"
	StatusPaused  Status = "paused"
	StatusPlaying Status = "playing"
)

// Controller manages one playback session bound to one video id. Playback is
// always looped; there is no terminal ended state. The settle delay between
// seek and play exists because issuing play immediately after an asynchronous
// seek is unreliable on the embed.
type Controller struct {
	itemID  string
	videoID string
	factory PlayerFactory

	settleDelay time.Duration

	mu         sync.Mutex
	player     Player
	generation uint64
	status     Status
	ready      bool
	muted      bool
	allowed    bool
	epoch      uint64

	pending      *time.Timer
	pendingEpoch uint64
}

func NewController(itemID, videoID string, factory PlayerFactory, settleDelay time.Duration) *Controller {
	c := &Controller{
		itemID:      itemID,
		videoID:     videoID,
		factory:     factory,
		settleDelay: settleDelay,
		status:      StatusLoading,
	}
	c.player = factory(videoID)
	return c
}

func (c *Controller) ItemID() string { return c.itemID }

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// MountKey distinguishes player instances across resume generations. A
// changed key means the underlying player was recreated, not reused.
func (c *Controller) MountKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%s-%d", c.itemID, c.generation)
}

// ShowThumbnail reports whether the static thumbnail stands in for the
// player, and whether it renders as the dimmed paused overlay.
func (c *Controller) ShowThumbnail() (show bool, dimmed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return true, false
	}
	return c.status == StatusPaused, c.status == StatusPaused
}

// SetGate applies the lifecycle decision for this item. Becoming allowed
// seeks to zero and schedules play after the settle delay; an epoch change
// while already allowed restarts the same sequence. Becoming disallowed
// pauses immediately and cancels any pending play.
func (c *Controller) SetGate(allowed bool, state GateState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state.ResumeGeneration != c.generation {
		c.remountLocked(state.ResumeGeneration)
	}

	epochAdvanced := state.Epoch != c.epoch
	c.epoch = state.Epoch

	if !allowed {
		if c.allowed || epochAdvanced {
			c.cancelPendingLocked()
			c.player.Pause()
			if c.ready {
				c.status = StatusPaused
			}
		}
		c.allowed = false
		return
	}

	if !c.allowed || epochAdvanced {
		c.allowed = true
		c.restartLocked()
		return
	}
	c.allowed = true
}

// OnReady marks the player ready. Mute state is applied as soon as the
// player can accept it, and a pending gate decision is honored.
func (c *Controller) OnReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ready = true
	if c.status == StatusLoading {
		c.status = StatusPaused
	}
	c.applyMuteLocked()

	if c.allowed {
		c.restartLocked()
	}
}

// OnStateChange folds an embed event into the controller status. ENDED loops
// back to the start instead of terminating.
func (c *Controller) OnStateChange(event PlayerEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event {
	case PlayerPlaying:
		c.status = StatusPlaying
	case PlayerPaused:
		c.status = StatusPaused
	case PlayerEnded:
		// An ENDED event can arrive after the item was already paused by
		// the gate; looping would restart a non-active item.
		if !c.allowed {
			c.status = StatusPaused
			return
		}
		c.player.SeekTo(0)
		c.player.Play()
		c.status = StatusPlaying
	case PlayerBuffering:
		// Transient; keep the current status.
	}
}

// TogglePlay is the user tap on the item. It acts immediately, without the
// settle delay.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ready {
		return
	}

	if c.status == StatusPlaying {
		c.cancelPendingLocked()
		c.player.Pause()
		c.status = StatusPaused
	} else {
		c.player.Play()
		c.status = StatusPlaying
	}
}

// SetMuted applies the screen-global mute flag.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.muted = muted
	if c.ready {
		c.applyMuteLocked()
	}
}

// Close cancels any pending delayed play. Called on teardown and when the
// item leaves the render window.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelPendingLocked()
}

// restartLocked seeks to zero and schedules the delayed play under the
// current epoch.
func (c *Controller) restartLocked() {
	c.cancelPendingLocked()
	c.player.SeekTo(0)

	epoch := c.epoch
	c.pendingEpoch = epoch
	c.pending = time.AfterFunc(c.settleDelay, func() {
		c.firePendingPlay(epoch)
	})
}

// firePendingPlay issues the delayed play unless the world moved on while
// the timer was pending.
func (c *Controller) firePendingPlay(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch || !c.allowed {
		return
	}
	c.pending = nil

	if !c.ready {
		// Not ready yet; OnReady will restart the sequence.
		return
	}

	c.player.Play()
	c.status = StatusPlaying
}

func (c *Controller) applyMuteLocked() {
	if c.muted {
		c.player.Mute()
	} else {
		c.player.UnMute()
	}
}

func (c *Controller) cancelPendingLocked() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

// remountLocked discards the player and creates a fresh one. Returning from
// background can leave the embed's transport in an unrecoverable state, so
// pause/play is not enough.
func (c *Controller) remountLocked(generation uint64) {
	c.cancelPendingLocked()
	c.generation = generation
	c.player = c.factory(c.videoID)
	c.ready = false
	c.status = StatusLoading
}
