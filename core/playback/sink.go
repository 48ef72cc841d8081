package playback

import "github.com/koscakluka/aiproxy-core/core/audio"

// Sink plays one segment at a time. Activate hands the segment over and
// returns without waiting for playback; onFinished is called exactly once
// when the segment is done, with a non-nil error if playback failed. It may
// be called from within Activate. When Activate returns an error onFinished
// must not be called.
type Sink interface {
	Activate(segment audio.Segment, onFinished func(error)) error
}

// Interrupter is implemented by sinks that can cut the active segment short.
// An interrupted segment still reports through its onFinished callback.
type Interrupter interface {
	Interrupt()
}

// discardSink finishes every segment immediately without playing it.
type discardSink struct{}

func (discardSink) Activate(_ audio.Segment, onFinished func(error)) error {
	go onFinished(nil)
	return nil
}
