package realtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/aiproxy-core/core/audio"
	"github.com/koscakluka/aiproxy-core/core/events"
	"github.com/koscakluka/aiproxy-core/core/playback"
	"github.com/koscakluka/aiproxy-core/core/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Engine manages a single realtime session over one duplex stream.
type Engine struct {
	transport  Transport
	connection ConnectionProvider
	sink       playback.Sink
	handler    func(events.Event)
	newEventID func() string
	sequencer  *playback.Sequencer

	mu        sync.Mutex
	state     State
	reason    error
	failure   error
	stream    Stream
	sessionID string
	cancel    context.CancelFunc
	inflight  sync.WaitGroup

	// notifying counts handler calls made from goroutines Stop waits on.
	notifying atomic.Int32

	closed   chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once
	stopErr  error
}

func New(transport Transport, opts ...Option) *Engine {
	e := &Engine{
		transport:  transport,
		newEventID: newEventID,
		closed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.sequencer = playback.NewSequencer(e.sink,
		playback.WithStartedCallback(func() { e.emit(events.NewPlaybackStarted()) }),
		playback.WithIdleCallback(func() { e.emit(events.NewPlaybackEnded()) }),
		playback.WithFailureCallback(func(err error) { e.emit(events.NewPlaybackFailed(err)) }),
	)
	return e
}

// Start opens the stream, starts the receive loop and sends cfg as the
// initial session configuration.
func (e *Engine) Start(ctx context.Context, cfg protocol.SessionConfig) error {
	ctx, span := tracer.Start(ctx, "start realtime session", trace.WithAttributes(
		attribute.String("session.voice", cfg.Voice),
		attribute.String("session.output_audio_format", string(cfg.OutputAudioFormat)),
	))
	defer span.End()

	updateSession, err := protocol.NewUpdateSession(cfg)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		span.RecordError(ErrAlreadyStarted)
		span.SetStatus(codes.Error, ErrAlreadyStarted.Error())
		return ErrAlreadyStarted
	}
	openCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.state = StateConnecting
	e.mu.Unlock()
	e.notify(events.NewSessionStateChanged(StateConnecting.String()))

	stream, err := e.open(openCtx)
	cancel()

	e.mu.Lock()
	if e.state != StateConnecting {
		e.mu.Unlock()
		if stream != nil {
			_ = stream.Close()
		}
		e.finish(ErrUserRequested)
		return ErrUserRequested
	}
	if err != nil {
		e.mu.Unlock()
		err = fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.finish(err)
		return err
	}

	loopCtx, cancelLoop := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancelLoop
	e.stream = stream
	e.state = StateOpen
	e.loopDone = make(chan struct{})
	e.mu.Unlock()
	e.notify(events.NewSessionStateChanged(StateOpen.String()))
	span.AddEvent("stream opened")

	go e.receiveLoop(loopCtx, stream)

	if err := e.send(ctx, updateSession); err != nil {
		err = fmt.Errorf("failed to send initial session configuration: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.failTransport(err)
		<-e.closed
		return err
	}
	return nil
}

func (e *Engine) open(ctx context.Context) (Stream, error) {
	if e.transport == nil {
		return nil, errors.New("no transport configured")
	}
	if e.connection == nil {
		return nil, errors.New("no endpoint configured")
	}

	endpoint, header, err := e.connection.RealtimeConnection(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve realtime endpoint: %w", err)
	}
	return e.transport.Open(ctx, endpoint, header)
}

// SendUserText adds a user message with a single text block to the
// conversation.
func (e *Engine) SendUserText(ctx context.Context, text string) error {
	return e.send(ctx, protocol.NewUserText(text))
}

// TriggerResponse asks the provider to respond. A nil overrides uses the
// session settings.
func (e *Engine) TriggerResponse(ctx context.Context, overrides *protocol.ResponseOverrides) error {
	return e.send(ctx, protocol.NewTriggerResponse(overrides))
}

// UpdateSession replaces the session configuration.
func (e *Engine) UpdateSession(ctx context.Context, cfg protocol.SessionConfig) error {
	cmd, err := protocol.NewUpdateSession(cfg)
	if err != nil {
		return err
	}
	return e.send(ctx, cmd)
}

// AppendInputAudio streams 24 kHz mono PCM16 audio into the input buffer.
func (e *Engine) AppendInputAudio(ctx context.Context, pcm16 []byte) error {
	return e.send(ctx, protocol.AppendInputAudio{Audio: base64.StdEncoding.EncodeToString(pcm16)})
}

// CommitInputAudio turns the input buffer into a user message. Only needed
// when server side turn detection does not commit on its own.
func (e *Engine) CommitInputAudio(ctx context.Context) error {
	return e.send(ctx, protocol.CommitInputAudio{})
}

// ClearInputAudio discards audio appended since the last commit.
func (e *Engine) ClearInputAudio(ctx context.Context) error {
	return e.send(ctx, protocol.ClearInputAudio{})
}

// CancelResponse cancels the in-progress response and drops audio that has
// not been played yet.
func (e *Engine) CancelResponse(ctx context.Context) error {
	if err := e.send(ctx, protocol.CancelResponse{}); err != nil {
		return err
	}
	e.sequencer.Clear()
	return nil
}

func (e *Engine) send(ctx context.Context, cmd protocol.Command) error {
	ctx, span := tracer.Start(ctx, "send realtime command")
	defer span.End()
	span.SetAttributes(attribute.String("command.type", cmd.Type()))

	if e.newEventID != nil {
		if id := e.newEventID(); id != "" {
			cmd = protocol.WithEventID(cmd, id)
			span.SetAttributes(attribute.String("command.event_id", id))
		}
	}

	data, err := protocol.Encode(cmd)
	if err != nil {
		err = fmt.Errorf("failed to encode %s: %w", cmd.Type(), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	e.mu.Lock()
	if e.state != StateOpen {
		e.mu.Unlock()
		span.SetStatus(codes.Error, ErrNotOpen.Error())
		return ErrNotOpen
	}
	e.inflight.Add(1)
	stream := e.stream
	e.mu.Unlock()
	defer e.inflight.Done()

	if err := stream.Send(ctx, data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("failed to send %s: %w", cmd.Type(), errors.Join(ctxErr, err))
		} else {
			err = fmt.Errorf("%w: failed to send %s: %w", ErrTransportFailure, cmd.Type(), err)
			e.failTransport(err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	messagesSent.Add(ctx, 1)
	return nil
}

// failTransport records a send failure and closes the stream so the receive
// loop ends the session with it.
func (e *Engine) failTransport(err error) {
	e.mu.Lock()
	if e.state != StateOpen {
		e.mu.Unlock()
		return
	}
	if e.failure == nil {
		e.failure = err
	}
	stream := e.stream
	e.mu.Unlock()

	if closeErr := stream.Close(); closeErr != nil {
		logger.Debug("failed to close stream after send failure", "error", closeErr)
	}
}

func (e *Engine) receiveLoop(ctx context.Context, stream Stream) {
	defer close(e.loopDone)

	for {
		msg, err := stream.Receive(ctx)
		if err != nil {
			e.mu.Lock()
			reason := e.failure
			if e.state == StateClosing {
				reason = ErrUserRequested
			} else if reason == nil {
				reason = fmt.Errorf("%w: %w", ErrTransportFailure, err)
			}
			e.mu.Unlock()

			if !errors.Is(reason, ErrUserRequested) {
				logger.Error("realtime session failed", "error", reason)
			}
			e.finish(reason)
			return
		}

		e.notifying.Add(1)
		e.dispatch(ctx, msg)
		e.notifying.Add(-1)
	}
}

func (e *Engine) dispatch(ctx context.Context, msg Message) {
	messagesReceived.Add(ctx, 1)

	event, err := protocol.Decode(msg.Data)
	if err != nil {
		e.reportDecodeFailure(ctx, err, msg.Data)
		return
	}

	switch event := event.(type) {
	case events.AudioDelta:
		segment, err := audio.DecodeBase64PCM16(event.Delta)
		if err != nil {
			e.reportDecodeFailure(ctx, fmt.Errorf("failed to decode audio delta: %w", err), msg.Data)
			return
		}
		e.sequencer.Enqueue(segment)

	case events.ProviderError:
		logger.Warn("provider error", "code", event.Code(), "message", event.Message())
		e.emit(event)

	case events.ProviderEvent:
		if event.Type == protocol.TypeSessionCreated {
			e.recordSessionID(event.Raw)
		}
		e.emit(event)

	default:
		e.emit(event)
	}
}

func (e *Engine) reportDecodeFailure(ctx context.Context, err error, raw []byte) {
	decodeFailures.Add(ctx, 1)
	logger.Warn("failed to decode realtime message", "error", err)
	e.emit(events.NewDecodeFailed(err, raw))
}

func (e *Engine) recordSessionID(raw []byte) {
	var created struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.Session.ID == "" {
		return
	}

	e.mu.Lock()
	e.sessionID = created.Session.ID
	e.mu.Unlock()
}

// Stop closes the session and waits for the receive loop to exit. Only the
// first call has an effect. While an event handler is running on the receive
// loop or inside Start, Stop closes the stream and returns without waiting;
// Done reports when the session is closed.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		switch e.state {
		case StateIdle:
			e.state = StateClosing
			e.mu.Unlock()
			e.finish(ErrUserRequested)
			return
		case StateClosed:
			e.mu.Unlock()
			return
		}

		e.state = StateClosing
		stream := e.stream
		cancel := e.cancel
		loopDone := e.loopDone
		e.mu.Unlock()
		e.emit(events.NewSessionStateChanged(StateClosing.String()))

		if cancel != nil {
			cancel()
		}
		if stream != nil {
			e.stopErr = stream.Close()
		}
		e.inflight.Wait()
		if e.notifying.Load() > 0 {
			return
		}
		if loopDone != nil {
			<-loopDone
		}
		<-e.closed
	})
	return e.stopErr
}

// finish moves the engine into its terminal state. Only the first call has
// an effect.
func (e *Engine) finish(reason error) {
	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return
	}
	e.state = StateClosed
	e.reason = reason
	stream := e.stream
	e.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
	e.sequencer.Clear()

	e.emit(events.NewSessionStateChanged(StateClosed.String()))
	e.emit(events.NewSessionClosed(reason))
	close(e.closed)
}

// notify emits event from a goroutine that Stop would otherwise wait on.
func (e *Engine) notify(event events.Event) {
	e.notifying.Add(1)
	defer e.notifying.Add(-1)
	e.emit(event)
}

func (e *Engine) emit(event events.Event) {
	if e.handler != nil {
		e.handler(event)
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the reason the session closed, or nil while it has not.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason
}

// Done is closed once the session reaches its terminal state.
func (e *Engine) Done() <-chan struct{} {
	return e.closed
}

// SessionID returns the provider session id once session.created was
// received.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}
