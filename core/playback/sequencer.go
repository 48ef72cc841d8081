package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/koscakluka/aiproxy-core/core/audio"
)

// Sequencer plays segments through a single sink, strictly in the order they
// were enqueued and never more than one at a time.
type Sequencer struct {
	sink Sink

	mu         sync.Mutex
	active     bool
	activeID   uint64
	pending    []audio.Segment
	activating bool
	handoff    *claimed

	onFailure func(error)
	onStarted func()
	onIdle    func()
}

type claimed struct {
	id      uint64
	segment audio.Segment
}

type Option func(*Sequencer)

// WithFailureCallback registers a callback for activation and playback
// failures. It is never called with the sequencer lock held.
func WithFailureCallback(callback func(error)) Option {
	return func(s *Sequencer) {
		s.onFailure = callback
	}
}

// WithStartedCallback registers a callback for the sequencer leaving the idle
// state.
func WithStartedCallback(callback func()) Option {
	return func(s *Sequencer) {
		s.onStarted = callback
	}
}

// WithIdleCallback registers a callback for the sequencer becoming idle after
// its last segment finished.
func WithIdleCallback(callback func()) Option {
	return func(s *Sequencer) {
		s.onIdle = callback
	}
}

// NewSequencer creates a sequencer driving sink. A nil sink discards every
// segment.
func NewSequencer(sink Sink, opts ...Option) *Sequencer {
	if sink == nil {
		sink = discardSink{}
	}
	s := &Sequencer{sink: sink}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue activates the segment right away when nothing is playing, otherwise
// appends it to the tail of the queue. It never blocks on playback.
func (s *Sequencer) Enqueue(segment audio.Segment) {
	s.mu.Lock()
	if s.active {
		s.pending = append(s.pending, segment)
		s.mu.Unlock()
		return
	}
	s.active = true
	s.activeID++
	id := s.activeID
	s.mu.Unlock()

	if s.onStarted != nil {
		s.onStarted()
	}
	s.run(id, segment)
}

// Clear drops every pending segment and interrupts the active one if the sink
// supports it.
func (s *Sequencer) Clear() {
	s.mu.Lock()
	dropped := len(s.pending)
	s.pending = nil
	active := s.active
	s.mu.Unlock()

	if dropped > 0 {
		segmentsDropped.Add(context.Background(), int64(dropped))
		logger.Debug("cleared pending playback", "segments", dropped)
	}
	if interrupter, ok := s.sink.(Interrupter); ok && active {
		interrupter.Interrupt()
	}
}

// Pending returns the number of segments waiting behind the active one.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Active reports whether a segment is currently handed to the sink.
func (s *Sequencer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// run activates segment. When another call is already inside the sink it
// hands the segment over instead, so finishes reported from within Activate
// never nest.
func (s *Sequencer) run(id uint64, segment audio.Segment) {
	s.mu.Lock()
	if s.activating {
		s.handoff = &claimed{id: id, segment: segment}
		s.mu.Unlock()
		return
	}
	s.activating = true
	s.mu.Unlock()

	for {
		if err := s.sink.Activate(segment, s.finisher(id)); err != nil {
			segmentsDropped.Add(context.Background(), 1)
			s.reportFailure(fmt.Errorf("failed to activate segment: %w", err))

			var ok bool
			if id, segment, ok = s.advance(id); ok {
				continue
			}
		}

		s.mu.Lock()
		next := s.handoff
		s.handoff = nil
		if next == nil {
			s.activating = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		id, segment = next.id, next.segment
	}
}

func (s *Sequencer) finisher(id uint64) func(error) {
	var once sync.Once
	return func(err error) {
		once.Do(func() {
			if err != nil {
				s.reportFailure(fmt.Errorf("failed to play segment: %w", err))
			} else {
				segmentsPlayed.Add(context.Background(), 1)
			}

			if next, segment, ok := s.advance(id); ok {
				s.run(next, segment)
			}
		})
	}
}

// advance releases the active slot held by id and claims it for the head of
// the queue. It returns false when id no longer owns the slot or the queue is
// empty.
func (s *Sequencer) advance(id uint64) (uint64, audio.Segment, bool) {
	s.mu.Lock()
	if !s.active || s.activeID != id {
		s.mu.Unlock()
		return 0, audio.Segment{}, false
	}

	if len(s.pending) == 0 {
		s.active = false
		s.mu.Unlock()
		if s.onIdle != nil {
			s.onIdle()
		}
		return 0, audio.Segment{}, false
	}

	segment := s.pending[0]
	s.pending[0] = audio.Segment{}
	s.pending = s.pending[1:]
	s.activeID++
	id = s.activeID
	s.mu.Unlock()

	return id, segment, true
}

func (s *Sequencer) reportFailure(err error) {
	logger.Warn("playback failure", "error", err)
	if s.onFailure != nil {
		s.onFailure(err)
	}
}
