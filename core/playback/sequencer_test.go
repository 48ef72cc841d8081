package playback

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/aiproxy-core/core/audio"
)

type activation struct {
	segment  audio.Segment
	finished func(error)
}

type fakeSink struct {
	mu          sync.Mutex
	activations []activation
	failFrames  map[int]bool
	interrupts  int
}

func (s *fakeSink) Activate(segment audio.Segment, onFinished func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFrames[segment.Frames] {
		return errors.New("device busy")
	}
	s.activations = append(s.activations, activation{segment: segment, finished: onFinished})
	return nil
}

func (s *fakeSink) Interrupt() {
	s.mu.Lock()
	s.interrupts++
	s.mu.Unlock()
}

func (s *fakeSink) activated() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := make([]int, 0, len(s.activations))
	for _, a := range s.activations {
		frames = append(frames, a.segment.Frames)
	}
	return frames
}

func (s *fakeSink) finish(t *testing.T, index int, err error) {
	t.Helper()
	s.mu.Lock()
	if index >= len(s.activations) {
		s.mu.Unlock()
		t.Fatalf("expected activation %d to exist, got %d activations", index, len(s.activations))
	}
	finished := s.activations[index].finished
	s.mu.Unlock()
	finished(err)
}

func segment(id int) audio.Segment {
	return audio.Segment{Samples: make([]float32, id*2), Frames: id}
}

func assertActivated(t *testing.T, sink *fakeSink, expected ...int) {
	t.Helper()
	got := sink.activated()
	if len(got) != len(expected) {
		t.Fatalf("expected activations %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("expected activations %v, got %v", expected, got)
		}
	}
}

func TestSequencerPlaysInEnqueueOrder(t *testing.T) {
	sink := &fakeSink{}
	idle := 0
	sequencer := NewSequencer(sink, WithIdleCallback(func() { idle++ }))

	sequencer.Enqueue(segment(1))
	sequencer.Enqueue(segment(2))
	sequencer.Enqueue(segment(3))

	assertActivated(t, sink, 1)
	if got := sequencer.Pending(); got != 2 {
		t.Fatalf("expected 2 pending segments, got %d", got)
	}

	sink.finish(t, 0, nil)
	assertActivated(t, sink, 1, 2)

	sink.finish(t, 1, nil)
	assertActivated(t, sink, 1, 2, 3)
	if !sequencer.Active() {
		t.Fatalf("expected sequencer to be active")
	}

	sink.finish(t, 2, nil)
	if sequencer.Active() {
		t.Fatalf("expected sequencer to be idle")
	}
	if idle != 1 {
		t.Fatalf("expected idle callback once, got %d", idle)
	}

	sequencer.Enqueue(segment(4))
	assertActivated(t, sink, 1, 2, 3, 4)
}

func TestSequencerIgnoresRepeatedFinish(t *testing.T) {
	sink := &fakeSink{}
	sequencer := NewSequencer(sink)

	sequencer.Enqueue(segment(1))
	sequencer.Enqueue(segment(2))
	sequencer.Enqueue(segment(3))

	sink.finish(t, 0, nil)
	sink.finish(t, 0, nil)
	assertActivated(t, sink, 1, 2)
	if got := sequencer.Pending(); got != 1 {
		t.Fatalf("expected 1 pending segment, got %d", got)
	}
}

func TestSequencerDropsSegmentsThatFailToActivate(t *testing.T) {
	sink := &fakeSink{failFrames: map[int]bool{2: true}}
	var failures []error
	sequencer := NewSequencer(sink, WithFailureCallback(func(err error) { failures = append(failures, err) }))

	sequencer.Enqueue(segment(1))
	sequencer.Enqueue(segment(2))
	sequencer.Enqueue(segment(3))

	sink.finish(t, 0, nil)
	assertActivated(t, sink, 1, 3)
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}

	sink.finish(t, 1, nil)
	if sequencer.Active() {
		t.Fatalf("expected sequencer to be idle")
	}
}

func TestSequencerActivationFailureWhenIdle(t *testing.T) {
	sink := &fakeSink{failFrames: map[int]bool{1: true}}
	var failures []error
	sequencer := NewSequencer(sink, WithFailureCallback(func(err error) { failures = append(failures, err) }))

	sequencer.Enqueue(segment(1))
	if sequencer.Active() {
		t.Fatalf("expected sequencer to stay idle after a failed activation")
	}
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}

	sequencer.Enqueue(segment(2))
	assertActivated(t, sink, 2)
}

func TestSequencerContinuesAfterPlaybackFailure(t *testing.T) {
	sink := &fakeSink{}
	var failures []error
	sequencer := NewSequencer(sink, WithFailureCallback(func(err error) { failures = append(failures, err) }))

	sequencer.Enqueue(segment(1))
	sequencer.Enqueue(segment(2))

	playbackErr := errors.New("underrun")
	sink.finish(t, 0, playbackErr)

	assertActivated(t, sink, 1, 2)
	if len(failures) != 1 || !errors.Is(failures[0], playbackErr) {
		t.Fatalf("expected playback failure to be reported, got %v", failures)
	}
}

func TestSequencerClear(t *testing.T) {
	sink := &fakeSink{}
	sequencer := NewSequencer(sink)

	sequencer.Enqueue(segment(1))
	sequencer.Enqueue(segment(2))
	sequencer.Enqueue(segment(3))
	sequencer.Clear()

	if got := sequencer.Pending(); got != 0 {
		t.Fatalf("expected no pending segments, got %d", got)
	}
	if sink.interrupts != 1 {
		t.Fatalf("expected active segment to be interrupted once, got %d", sink.interrupts)
	}

	sink.finish(t, 0, nil)
	assertActivated(t, sink, 1)
	if sequencer.Active() {
		t.Fatalf("expected sequencer to be idle")
	}
}

// asyncSink finishes every segment from another goroutine and records the
// highest number of segments it ever held at once.
type asyncSink struct {
	mu        sync.Mutex
	playing   int
	maxActive int
	order     []int
	done      chan struct{}
	expected  int
}

func (s *asyncSink) Activate(segment audio.Segment, onFinished func(error)) error {
	s.mu.Lock()
	s.playing++
	if s.playing > s.maxActive {
		s.maxActive = s.playing
	}
	s.order = append(s.order, segment.Frames)
	if len(s.order) == s.expected {
		close(s.done)
	}
	s.mu.Unlock()

	go func() {
		s.mu.Lock()
		s.playing--
		s.mu.Unlock()
		onFinished(nil)
	}()
	return nil
}

func TestSequencerOrderUnderBurstyArrival(t *testing.T) {
	const count = 200
	sink := &asyncSink{done: make(chan struct{}), expected: count}
	sequencer := NewSequencer(sink)

	for i := 1; i <= count; i++ {
		sequencer.Enqueue(segment(i))
		if i%17 == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	select {
	case <-sink.done:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected %d activations, timed out", count)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.maxActive != 1 {
		t.Fatalf("expected at most one active segment, got %d", sink.maxActive)
	}
	for i, frames := range sink.order {
		if frames != i+1 {
			t.Fatalf("expected segment %d at position %d, got %d", i+1, i, frames)
		}
	}
}

func TestSequencerWithoutSinkDiscards(t *testing.T) {
	idle := make(chan struct{}, 1)
	sequencer := NewSequencer(nil, WithIdleCallback(func() { idle <- struct{}{} }))

	sequencer.Enqueue(segment(1))

	select {
	case <-idle:
	case <-time.After(time.Second):
		t.Fatalf("expected sequencer to become idle")
	}
}

// holdFirstSink keeps the first segment playing until released and finishes
// every later one before Activate returns.
type holdFirstSink struct {
	mu       sync.Mutex
	release  func(error)
	order    []int
	depth    int
	maxDepth int
}

func (s *holdFirstSink) Activate(segment audio.Segment, onFinished func(error)) error {
	s.mu.Lock()
	s.order = append(s.order, segment.Frames)
	if s.release == nil {
		s.release = onFinished
		s.mu.Unlock()
		return nil
	}
	s.depth++
	s.maxDepth = max(s.maxDepth, s.depth)
	s.mu.Unlock()

	onFinished(nil)

	s.mu.Lock()
	s.depth--
	s.mu.Unlock()
	return nil
}

func TestSequencerSynchronousFinishDoesNotNest(t *testing.T) {
	const count = 1000
	idle := make(chan struct{}, 1)
	sink := &holdFirstSink{}
	sequencer := NewSequencer(sink, WithIdleCallback(func() { idle <- struct{}{} }))

	for i := 1; i <= count; i++ {
		sequencer.Enqueue(segment(i))
	}
	if got := sequencer.Pending(); got != count-1 {
		t.Fatalf("expected %d pending segments, got %d", count-1, got)
	}

	sink.mu.Lock()
	release := sink.release
	sink.mu.Unlock()
	release(nil)

	select {
	case <-idle:
	case <-time.After(time.Second):
		t.Fatalf("expected sequencer to become idle")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.order) != count {
		t.Fatalf("expected %d activations, got %d", count, len(sink.order))
	}
	for i, frames := range sink.order {
		if frames != i+1 {
			t.Fatalf("expected segment %d at position %d, got %d", i+1, i, frames)
		}
	}
	if sink.maxDepth != 1 {
		t.Fatalf("expected activations to stay unnested, got depth %d", sink.maxDepth)
	}
	if sequencer.Active() {
		t.Fatalf("expected sequencer to be idle")
	}
}
