package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrBadEncoding is returned when an audio payload is not valid base64 or does
// not hold a whole number of 16-bit samples.
var ErrBadEncoding = errors.New("bad audio encoding")

const pcm16MaxMagnitude = 32767

// Segment is a decoded chunk of provider audio ready for playback.
//
// Samples are interleaved stereo (left, right) normalized to [-1, 1] at
// [ProviderSampleRate].
type Segment struct {
	Samples []float32
	Frames  int
}

// Duration returns how long the segment plays for.
func (s Segment) Duration() time.Duration {
	return time.Duration(s.Frames) * time.Second / ProviderSampleRate
}

// Bytes returns the samples as little-endian float32 bytes, the layout expected
// by float32 playback devices.
func (s Segment) Bytes() []byte {
	out := make([]byte, len(s.Samples)*4)
	for i, sample := range s.Samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(sample))
	}
	return out
}

// DecodeBase64PCM16 decodes a base64 payload of little-endian signed 16-bit
// mono PCM into a stereo [Segment]. Each mono sample is duplicated into both
// channels.
func DecodeBase64PCM16(payload string) (Segment, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Segment{}, fmt.Errorf("%w: %w", ErrBadEncoding, err)
	}

	return DecodePCM16(raw)
}

// DecodePCM16 is [DecodeBase64PCM16] for payloads that are already raw bytes.
func DecodePCM16(raw []byte) (Segment, error) {
	if len(raw)%2 != 0 {
		return Segment{}, fmt.Errorf("%w: odd byte length %d", ErrBadEncoding, len(raw))
	}

	frames := len(raw) / 2
	samples := make([]float32, frames*ProviderChannels)
	for i := range frames {
		sample := normalize(int16(binary.LittleEndian.Uint16(raw[i*2:])))
		samples[i*2] = sample
		samples[i*2+1] = sample
	}

	return Segment{Samples: samples, Frames: frames}, nil
}

// normalize maps a PCM16 sample onto [-1, 1]. -32768 is the only value whose
// magnitude exceeds 32767 and is clamped.
func normalize(sample int16) float32 {
	v := float32(sample) / pcm16MaxMagnitude
	if v < -1 {
		return -1
	}
	return v
}
