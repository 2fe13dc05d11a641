package audio

import "time"

const (
	// DefaultSampleRate is the rate the realtime backend expects for input
	// audio and produces for output audio.
	DefaultSampleRate = 24000
	DefaultFormat     = "linear16"

	// FrameSize is the number of bytes in one outbound audio frame: 100ms of
	// mono PCM16 at DefaultSampleRate.
	FrameSize = 4800
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: EncodingLinear16, Channels: 1}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
	Channels   int
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// BytesPerSecond reports how many bytes of audio in this encoding make up one
// second of sound. Unknown formats report 0.
func (e EncodingInfo) BytesPerSecond() int {
	size := e.Format.ByteSize()
	if size <= 0 {
		return 0
	}
	channels := max(e.Channels, 1)
	return e.SampleRate * channels * size
}

// Duration reports how long n bytes of audio play for.
func (e EncodingInfo) Duration(n int) time.Duration {
	bps := e.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bps)
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
