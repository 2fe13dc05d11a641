// Package wavfile replays a WAV file as if it were a microphone.
package wavfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/koscakluka/ema-realtime/core/audio"
)

const defaultChunkDuration = 20 * time.Millisecond

type Source struct {
	path          string
	chunkDuration time.Duration
	// paced sleeps between chunks to mimic a live device
	paced bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SourceOption func(*Source)

func WithChunkDuration(d time.Duration) SourceOption {
	return func(s *Source) {
		if d > 0 {
			s.chunkDuration = d
		}
	}
}

// WithoutPacing emits the whole file as fast as it can be read.
func WithoutPacing() SourceOption {
	return func(s *Source) { s.paced = false }
}

func NewSource(path string, opts ...SourceOption) *Source {
	s := &Source{path: path, chunkDuration: defaultChunkDuration, paced: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartCapture opens the file and streams it to onAudio as PCM16 at the
// realtime input rate. It returns once the file is open; the stream itself
// runs until the file ends, ctx is done or StopCapture is called.
func (s *Source) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open wav file: %w", err)
	}

	reader, err := audio.NewWAVReader(file)
	if err != nil {
		file.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go func() {
		defer close(done)
		defer file.Close()
		if err := s.replay(ctx, reader, onAudio); err != nil {
			logger.Warn("wav replay stopped", "path", s.path, "error", err)
		}
	}()

	return nil
}

func (s *Source) replay(ctx context.Context, reader *audio.WAVReader, onAudio func([]byte)) error {
	samplesPerChunk := max(int(time.Duration(reader.SampleRate())*s.chunkDuration/time.Second), 1)

	var ticker *time.Ticker
	if s.paced {
		ticker = time.NewTicker(s.chunkDuration)
		defer ticker.Stop()
	}

	for {
		samples, err := reader.Read(samplesPerChunk)
		if len(samples) > 0 {
			resampled, rerr := audio.Resample(samples, reader.SampleRate(), audio.DefaultSampleRate)
			if rerr != nil {
				return rerr
			}
			onAudio(audio.PCM16ToBytes(resampled))
		}
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read wav samples: %w", err)
		}

		if ticker == nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Source) StopCapture() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// Done is closed when the current replay finishes. It is nil when nothing is
// being replayed.
func (s *Source) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
