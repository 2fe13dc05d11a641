package main

import (
	"fmt"
	"time"

	realtime "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/audio/miniaudio"
	"github.com/koscakluka/ema-realtime/core/audio/portaudio"
	"github.com/koscakluka/ema-realtime/core/audio/wavfile"
)

// portAudioBufferSize is 20 ms at the realtime sample rate.
const portAudioBufferSize = 480

type devices struct {
	input  any
	output any
	close  func()
}

// openDevices opens the audio backend picked on the command line. The WAV
// replay source, when given, replaces the backend's microphone.
func openDevices(opts cliOptions) (*devices, error) {
	d := &devices{close: func() {}}

	switch opts.Audio {
	case audioPortAudio:
		client, err := portaudio.NewClient(portAudioBufferSize)
		if err != nil {
			return nil, fmt.Errorf("failed to open portaudio: %w", err)
		}
		d.input, d.output, d.close = client, client, client.Close
	default:
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to open miniaudio: %w", err)
		}
		d.input, d.output, d.close = client, client, client.Close
	}

	if opts.InputWAV != "" {
		d.input = wavfile.NewSource(opts.InputWAV, wavfile.WithChunkDuration(100*time.Millisecond))
	}
	return d, nil
}

func (d *devices) controllerOptions() []realtime.ControllerOption {
	var opts []realtime.ControllerOption

	switch in := d.input.(type) {
	case realtime.AudioInput:
		opts = append(opts, realtime.WithAudioInput(in))
	case realtime.AudioInputStream:
		opts = append(opts, realtime.WithAudioInputStream(in))
	}

	switch out := d.output.(type) {
	case realtime.AudioOutput:
		opts = append(opts, realtime.WithAudioOutput(out))
	case realtime.AudioOutputRaw:
		opts = append(opts, realtime.WithAudioOutputRaw(out))
	}

	return opts
}
