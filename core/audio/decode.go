package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tosone/minimp3"
	"github.com/youpy/go-wav"
)

type ContainerFormat string

const (
	ContainerMP3 ContainerFormat = "mp3"
	ContainerWAV ContainerFormat = "wav"
	// ContainerPCM is headerless little-endian PCM16 mono.
	ContainerPCM ContainerFormat = "pcm"
)

var ErrUnsupportedContainer = errors.New("unsupported audio container")

// SniffContainer guesses the container of an encoded audio payload from its
// leading bytes. Anything unrecognised is treated as raw PCM.
func SniffContainer(data []byte) ContainerFormat {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return ContainerWAV
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return ContainerMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return ContainerMP3
	}
	return ContainerPCM
}

// DecodeSpeech decodes synthesized speech into mono PCM16 at targetRate so it
// can be handed to the same sink the realtime session plays through.
// pcmRate is only consulted for ContainerPCM payloads.
func DecodeSpeech(format ContainerFormat, data []byte, pcmRate, targetRate int) ([]int16, error) {
	var (
		samples []int16
		rate    int
		err     error
	)

	switch format {
	case ContainerMP3:
		samples, rate, err = decodeMP3(data)
	case ContainerWAV:
		samples, rate, err = DecodeWAV(bytes.NewReader(data))
	case ContainerPCM:
		samples, rate = BytesToPCM16(data), pcmRate
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContainer, format)
	}
	if err != nil {
		return nil, err
	}

	return Resample(samples, rate, targetRate)
}

func decodeMP3(data []byte) ([]int16, int, error) {
	decoder, pcm, err := minimp3.DecodeFull(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode mp3: %w", err)
	}
	defer decoder.Close()

	return downmix(BytesToPCM16(pcm), decoder.Channels), decoder.SampleRate, nil
}

// DecodeWAV reads a whole WAV stream into mono PCM16 samples and reports its
// sample rate.
func DecodeWAV(r WAVSource) ([]int16, int, error) {
	reader := newWAVReader(r)
	format, err := reader.Format()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read wav format: %w", err)
	}

	var samples []int16
	for {
		chunk, err := reader.ReadSamples()
		if len(chunk) > 0 {
			samples = append(samples, wavSamplesToPCM16(reader, chunk, format)...)
		}
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, 0, fmt.Errorf("failed to read wav samples: %w", err)
		}
	}

	return samples, int(format.SampleRate), nil
}

type wavReader interface {
	Format() (*wav.WavFormat, error)
	ReadSamples(params ...uint32) ([]wav.Sample, error)
	IntValue(sample wav.Sample, channel uint) int
}

// WAVSource is what the RIFF parser reads from; both *os.File and
// *bytes.Reader satisfy it.
type WAVSource interface {
	io.Reader
	io.ReaderAt
}

func newWAVReader(r WAVSource) wavReader {
	return wav.NewReader(r)
}

// WAVReader exposes incremental sample reads for capture sources that replay
// a file in real time.
type WAVReader struct {
	reader wavReader
	format *wav.WavFormat
}

func NewWAVReader(r WAVSource) (*WAVReader, error) {
	reader := newWAVReader(r)
	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav format: %w", err)
	}
	return &WAVReader{reader: reader, format: format}, nil
}

func (w *WAVReader) SampleRate() int { return int(w.format.SampleRate) }

// Read returns up to n mono PCM16 samples. It returns io.EOF once the file is
// exhausted.
func (w *WAVReader) Read(n int) ([]int16, error) {
	chunk, err := w.reader.ReadSamples(uint32(n))
	return wavSamplesToPCM16(w.reader, chunk, w.format), err
}

func wavSamplesToPCM16(reader wavReader, chunk []wav.Sample, format *wav.WavFormat) []int16 {
	// go-wav keeps at most two channels per sample
	channels := min(max(int(format.NumChannels), 1), 2)
	out := make([]int16, 0, len(chunk))
	for _, sample := range chunk {
		sum := 0
		for ch := range channels {
			sum += scaleToPCM16(reader.IntValue(sample, uint(ch)), format.BitsPerSample)
		}
		out = append(out, int16(sum/channels))
	}
	return out
}

func scaleToPCM16(v int, bits uint16) int {
	switch bits {
	case 8:
		// 8-bit wav is unsigned
		return (v - 128) << 8
	case 24:
		return v >> 8
	case 32:
		return v >> 16
	}
	return v
}
