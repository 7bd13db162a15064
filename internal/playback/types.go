package playback

import "github.com/lexiqai/voicebot-widget/internal/audio"

// Track is one loaded clip, the Go counterpart of a browser Audio object
type Track interface {
	// Play starts playback from the current position (the start, after Stop)
	Play() error

	// Stop pauses and rewinds to the start; the end handler is not called
	Stop()

	// OnEnded sets the handler run when playback reaches the end by itself
	OnEnded(fn func())

	// Close stops playback and releases the clip
	Close() error
}

// Player turns decoded clips into playable tracks
type Player interface {
	Load(clip *audio.Clip) (Track, error)
}
