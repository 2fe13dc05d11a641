package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	realtime "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/audio"
	"github.com/koscakluka/ema-realtime/core/config"
	"github.com/koscakluka/ema-realtime/core/texttospeech/providers"
)

// playbackTail covers the device buffer still draining after the last
// sample was handed over.
const playbackTail = 300 * time.Millisecond

func runSay(ctx context.Context, cfg config.Config, opts cliOptions) error {
	provider, err := providers.New(cfg.TTS)
	if err != nil {
		return err
	}

	speech, err := provider.Synthesize(ctx, opts.Text, opts.Voice)
	if err != nil {
		return err
	}
	samples, err := speech.Samples(audio.DefaultSampleRate)
	if err != nil {
		return fmt.Errorf("failed to decode speech: %w", err)
	}

	devs, err := openDevices(opts)
	if err != nil {
		return err
	}
	defer devs.close()

	switch out := devs.output.(type) {
	case realtime.AudioOutput:
		if err := out.Init(audio.DefaultSampleRate); err != nil {
			return fmt.Errorf("failed to initialize playback: %w", err)
		}
		if err := out.Play(samples); err != nil {
			return fmt.Errorf("failed to play speech: %w", err)
		}
	case realtime.AudioOutputRaw:
		if err := out.SendAudio(audio.PCM16ToBytes(samples)); err != nil {
			return fmt.Errorf("failed to play speech: %w", err)
		}
	default:
		return fmt.Errorf("audio backend %q cannot play audio", opts.Audio)
	}

	duration := time.Duration(len(samples)) * time.Second / audio.DefaultSampleRate
	select {
	case <-ctx.Done():
	case <-time.After(duration + playbackTail):
	}
	return nil
}

func runVoices(ctx context.Context, cfg config.Config, out io.Writer) error {
	provider, err := providers.New(cfg.TTS)
	if err != nil {
		return err
	}

	voices, err := provider.Voices(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\n")
	for _, voice := range voices {
		fmt.Fprintf(w, "%s\t%s\n", voice.ID, voice.Name)
	}
	return w.Flush()
}
