package playback

// Player is the embedded video player collaborator. Its transport is opaque;
// commands may be silently dropped before the player reports ready.
type Player interface {
	Play()
	Pause()
	SeekTo(seconds float64)
	Mute()
	UnMute()
}

// PlayerFactory creates a player bound to one video identifier. A new player
// is requested whenever the resume generation changes.
type PlayerFactory func(videoID string) Player

// PlayerEvent mirrors the state-change events emitted by the embed.
type PlayerEvent string

const (
	PlayerPlaying   PlayerEvent = "PLAYING"
	PlayerPaused    PlayerEvent = "PAUSED"
	PlayerBuffering PlayerEvent = "BUFFERING"
	PlayerEnded     PlayerEvent = "ENDED"
)

// WatchURLs returns the native video-app URL for a video id and its web
// fallback, for the external-open affordance.
func WatchURLs(videoID string) (native string, web string) {
	return "vnd.youtube://" + videoID, "https://www.youtube.com/watch?v=" + videoID
}
