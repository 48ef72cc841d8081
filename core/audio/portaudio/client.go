package portaudio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/aiproxy-core/core/audio"
)

var ErrSegmentActive = errors.New("segment already active")

// Client plays segments through a blocking PortAudio output stream. Each
// segment is written from its own goroutine.
type Client struct {
	framesPerBuffer int
	stream          *portaudio.Stream
	out             []float32

	mu          sync.Mutex
	active      bool
	interrupted atomic.Bool
	done        chan struct{}
}

func NewClient(framesPerBuffer int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	info := audio.GetProviderEncodingInfo()
	out := make([]float32, framesPerBuffer*info.Channels)
	stream, err := portaudio.OpenDefaultStream(0, info.Channels, float64(info.SampleRate), framesPerBuffer, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open PortAudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start PortAudio stream: %w", err)
	}

	return &Client{
		framesPerBuffer: framesPerBuffer,
		stream:          stream,
		out:             out,
	}, nil
}

func (c *Client) Activate(segment audio.Segment, onFinished func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return fmt.Errorf("stream closed")
	}
	if c.active {
		return ErrSegmentActive
	}
	c.active = true
	c.interrupted.Store(false)
	c.done = make(chan struct{})

	go c.write(c.stream, segment.Samples, onFinished, c.done)
	return nil
}

func (c *Client) write(stream *portaudio.Stream, samples []float32, onFinished func(error), done chan struct{}) {
	var err error
	for len(samples) > 0 && !c.interrupted.Load() {
		n := copy(c.out, samples)
		clear(c.out[n:])
		samples = samples[n:]
		if err = stream.Write(); errors.Is(err, portaudio.OutputUnderflowed) {
			// the stream idles between segments
			err = nil
		} else if err != nil {
			err = fmt.Errorf("failed to write to PortAudio stream: %w", err)
			break
		}
	}

	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
	close(done)
	onFinished(err)
}

// Interrupt stops writing the active segment after the current buffer.
func (c *Client) Interrupt() {
	c.interrupted.Store(true)
}

func (c *Client) Close() error {
	c.mu.Lock()
	stream, done := c.stream, c.done
	c.stream = nil
	c.mu.Unlock()
	if stream == nil {
		return nil
	}

	c.Interrupt()
	if done != nil {
		<-done
	}
	return errors.Join(stream.Stop(), stream.Close(), portaudio.Terminate())
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetProviderEncodingInfo()
}
