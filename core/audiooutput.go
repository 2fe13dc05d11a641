package realtime

import (
	"reflect"

	"github.com/koscakluka/ema-realtime/core/audio"
)

// audioOutput normalizes sample-based sinks and raw byte sinks behind one
// facade used by the session loop.
//
// Raw sinks receive little-endian PCM16 bytes. When a raw sink reports an
// encoding with a different sample rate, samples are resampled before they
// are forwarded.
type audioOutput struct {
	// samples is set when the sink accepts decoded PCM16 samples.
	samples AudioOutput
	// raw is set when the sink only accepts byte buffers.
	raw AudioOutputRaw

	sampleRate int
}

func newAudioOutput(client any) *audioOutput {
	a := &audioOutput{}
	a.Set(client)
	return a
}

// Set replaces the configured sink. Nil and typed-nil values are treated as
// unconfigured.
func (a *audioOutput) Set(client any) {
	if a == nil {
		return
	}

	a.samples = nil
	a.raw = nil

	if isNilClient(client) {
		return
	}

	if samples, ok := client.(AudioOutput); ok {
		a.samples = samples
	} else if raw, ok := client.(AudioOutputRaw); ok {
		a.raw = raw
	}
}

func (a *audioOutput) isConfigured() bool {
	return a != nil && (a.samples != nil || a.raw != nil)
}

// Init prepares the sink for audio at sampleRate.
func (a *audioOutput) Init(sampleRate int) error {
	if a == nil {
		return nil
	}

	a.sampleRate = sampleRate
	if a.samples != nil {
		return a.samples.Init(sampleRate)
	}
	return nil
}

// Play queues samples for playback. Without a sink the samples are dropped.
func (a *audioOutput) Play(samples []int16) error {
	if a == nil {
		return nil
	}

	if a.samples != nil {
		return a.samples.Play(samples)
	}
	if a.raw == nil {
		return nil
	}

	if encoder, ok := a.raw.(interface{ EncodingInfo() audio.EncodingInfo }); ok && a.sampleRate > 0 {
		if target := encoder.EncodingInfo().SampleRate; target > 0 && target != a.sampleRate {
			resampled, err := audio.Resample(samples, a.sampleRate, target)
			if err != nil {
				return err
			}
			samples = resampled
		}
	}
	return a.raw.SendAudio(audio.PCM16ToBytes(samples))
}

// Clear drops everything queued for playback.
func (a *audioOutput) Clear() {
	if a == nil {
		return
	}

	if a.samples != nil {
		a.samples.Clear()
	} else if a.raw != nil {
		a.raw.ClearBuffer()
	}
}

// isNilClient detects nil and typed-nil interface values so facades do not
// store unusable interface wrappers as configured clients.
func isNilClient(client any) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
