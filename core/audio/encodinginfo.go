package audio

const (
	// ProviderSampleRate is the sample rate of audio deltas pushed by the
	// provider.
	ProviderSampleRate = 24000
	// ProviderChannels is the channel count of decoded segments. The provider
	// sends mono audio, it is upmixed to stereo on decode.
	ProviderChannels = 2
)

// GetProviderEncodingInfo describes the layout of every [Segment] produced by
// [DecodeBase64PCM16].
func GetProviderEncodingInfo() EncodingInfo {
	return EncodingInfo{
		SampleRate: ProviderSampleRate,
		Channels:   ProviderChannels,
		Format:     EncodingFloat32,
	}
}

// GetInputEncodingInfo describes the audio the provider accepts on the input
// buffer: 24kHz mono little-endian PCM16.
func GetInputEncodingInfo() EncodingInfo {
	return EncodingInfo{
		SampleRate: ProviderSampleRate,
		Channels:   1,
		Format:     EncodingPCM16,
	}
}

type EncodingInfo struct {
	SampleRate int
	Channels   int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Channels == 0 || e.Format.Name() == ""
}

// BytesPerFrame returns the size of one interleaved frame, or -1 when the
// format is unknown.
func (e EncodingInfo) BytesPerFrame() int {
	size := e.Format.ByteSize()
	if size < 0 {
		return -1
	}
	return size * e.Channels
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingG711ALaw:
		return 0x55
	case EncodingG711ULaw:
		return 0xFF
	}

	return 0
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingG711ULaw, EncodingG711ALaw:
		return 1
	case EncodingPCM16:
		return 2
	case EncodingFloat32:
		return 4
	}
	return -1
}

const (
	EncodingPCM16    encodingFormat = "pcm16"
	EncodingG711ULaw encodingFormat = "g711_ulaw"
	EncodingG711ALaw encodingFormat = "g711_alaw"
	EncodingFloat32  encodingFormat = "f32"
)
