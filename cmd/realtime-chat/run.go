package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/aiproxy-core/core/audio/miniaudio"
	"github.com/koscakluka/aiproxy-core/core/audio/portaudio"
	"github.com/koscakluka/aiproxy-core/core/events"
	"github.com/koscakluka/aiproxy-core/core/openai"
	"github.com/koscakluka/aiproxy-core/core/proxy"
	"github.com/koscakluka/aiproxy-core/core/realtime"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const (
	eventBufferSize          = 256
	portaudioFramesPerBuffer = 480
)

var logger = otelslog.NewLogger("github.com/koscakluka/aiproxy-core/cmd/realtime-chat")

func run(ctx context.Context, cfg config) error {
	sessionEvents := make(chan events.Event, eventBufferSize)
	opts := []realtime.Option{
		realtime.WithEventHandler(func(event events.Event) {
			select {
			case sessionEvents <- event:
			default:
				logger.Warn("dropping session event, interface is behind", "kind", event.Kind())
			}
		}),
	}

	var audioClient *miniaudio.Client
	switch {
	case !cfg.audio:
	case cfg.sink == sinkPortaudio:
		sink, err := portaudio.NewClient(portaudioFramesPerBuffer)
		if err != nil {
			return fmt.Errorf("failed to open audio output: %w", err)
		}
		defer func() {
			if err := sink.Close(); err != nil {
				logger.Warn("failed to close audio output", "error", err)
			}
		}()
		opts = append(opts, realtime.WithAudioSink(sink))
	default:
		var err error
		audioClient, err = miniaudio.NewClient()
		if err != nil {
			return fmt.Errorf("failed to open audio devices: %w", err)
		}
		defer audioClient.Close()
		opts = append(opts, realtime.WithAudioSink(audioClient))
	}

	service := openai.NewService(proxy.NewClient(cfg.partialKey, cfg.proxyOptions...))
	engine, err := service.NewRealtimeSession(ctx, cfg.session, opts...)
	if err != nil {
		return fmt.Errorf("failed to start realtime session: %w", err)
	}
	defer engine.Stop()

	if cfg.microphone && audioClient != nil {
		stopCapture, err := streamMicrophone(ctx, audioClient, engine)
		if err != nil {
			return err
		}
		defer stopCapture()
	}

	if _, err := tea.NewProgram(newModel(ctx, engine, sessionEvents), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("failed to run interface: %w", err)
	}

	if err := engine.Err(); err != nil && !errors.Is(err, realtime.ErrUserRequested) {
		return err
	}
	return nil
}

// streamMicrophone forwards captured audio to the session outside of the
// device callback.
func streamMicrophone(ctx context.Context, client *miniaudio.Client, engine *realtime.Engine) (func(), error) {
	chunks := make(chan []byte, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range chunks {
			if err := engine.AppendInputAudio(ctx, chunk); err != nil {
				if errors.Is(err, realtime.ErrNotOpen) {
					return
				}
				logger.Warn("failed to send microphone audio", "error", err)
			}
		}
	}()

	err := client.StartCapture(ctx, func(pcm16 []byte) {
		select {
		case chunks <- pcm16:
		default:
		}
	})
	if err != nil {
		close(chunks)
		<-done
		return nil, fmt.Errorf("failed to start microphone: %w", err)
	}

	return func() {
		if err := client.StopCapture(); err != nil {
			logger.Warn("failed to stop microphone", "error", err)
		}
		close(chunks)
		<-done
	}, nil
}
