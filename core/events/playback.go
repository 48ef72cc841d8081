package events

const (
	// KindPlaybackStarted identifies the sequencer leaving the idle state.
	KindPlaybackStarted Kind = "playback.started"
	// KindPlaybackFailed identifies a segment that failed to activate or play.
	KindPlaybackFailed Kind = "playback.failed"
	// KindPlaybackEnded identifies the sequencer draining its queue.
	KindPlaybackEnded Kind = "playback.ended"
)

// PlaybackStarted marks the first segment activated after the sequencer was
// idle.
type PlaybackStarted struct{ Base }

// NewPlaybackStarted creates a playback started event.
func NewPlaybackStarted() PlaybackStarted {
	return PlaybackStarted{Base: NewBase(KindPlaybackStarted)}
}

// PlaybackFailed carries a sink failure. Playback continues with the next
// queued segment.
type PlaybackFailed struct {
	Base
	Err error
}

// NewPlaybackFailed creates a playback failed event.
func NewPlaybackFailed(err error) PlaybackFailed {
	return PlaybackFailed{Base: NewBase(KindPlaybackFailed), Err: err}
}

// PlaybackEnded marks the sequencer becoming idle after the last queued
// segment finished.
type PlaybackEnded struct{ Base }

// NewPlaybackEnded creates a playback ended event.
func NewPlaybackEnded() PlaybackEnded {
	return PlaybackEnded{Base: NewBase(KindPlaybackEnded)}
}
