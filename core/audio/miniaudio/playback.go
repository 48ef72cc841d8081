package miniaudio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/aiproxy-core/core/audio"
)

var ErrSegmentActive = errors.New("segment already active")

type playbackClient struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	active *activeSegment

	mu       sync.Mutex
	activeMu sync.Mutex
}

type activeSegment struct {
	data       []byte
	onFinished func(error)
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := audio.GetProviderEncodingInfo()
	sampleRate := uint32(info.SampleRate)
	format := malgo.FormatF32
	bytesPerFrame := malgo.SampleSizeInBytes(format) * info.Channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(info.Channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	c.Interrupt()
	return nil
}

// Activate queues segment on the device. onFinished is called from its own
// goroutine once the device consumed the last frame.
func (c *playbackClient) Activate(segment audio.Segment, onFinished func(error)) error {
	c.mu.Lock()
	device := c.device
	c.mu.Unlock()
	if device == nil {
		return fmt.Errorf("device not initialized")
	} else if !device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	c.activeMu.Lock()
	defer c.activeMu.Unlock()
	if c.active != nil {
		return ErrSegmentActive
	}
	c.active = &activeSegment{data: segment.Bytes(), onFinished: onFinished}
	return nil
}

// Interrupt drops the rest of the active segment and reports it finished.
func (c *playbackClient) Interrupt() {
	c.activeMu.Lock()
	active := c.active
	c.active = nil
	c.activeMu.Unlock()

	if active != nil {
		go active.onFinished(nil)
	}
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}

	c.device.Uninit()
	c.device = nil
	c.Interrupt()

	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame

		c.activeMu.Lock()
		active := c.active
		if active == nil {
			c.activeMu.Unlock()
			clear(pOutput[:need])
			return
		}

		n := copy(pOutput[:need], active.data)
		active.data = active.data[n:]
		finished := len(active.data) == 0
		if finished {
			c.active = nil
		}
		c.activeMu.Unlock()

		// Silence for the remainder of the period.
		clear(pOutput[n:need])
		if finished {
			go active.onFinished(nil)
		}
	}
}
