package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	realtime "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/config"
)

const (
	commandRun    = "run"
	commandSay    = "say"
	commandVoices = "voices"
	commandSchema = "schema"

	audioMiniaudio = "miniaudio"
	audioPortAudio = "portaudio"
)

type cliOptions struct {
	Command string

	ConfigPath string
	EnvFile    string
	ConfigURL  string

	Audio            string
	InputWAV         string
	MetricsAddr      string
	OutDir           string
	HandshakeTimeout time.Duration

	Voice string
	Text  string
}

func parseOptions(args []string, errOut io.Writer) (cliOptions, error) {
	opts := cliOptions{Command: commandRun}
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		opts.Command, args = args[0], args[1:]
	}
	if !slices.Contains([]string{commandRun, commandSay, commandVoices, commandSchema}, opts.Command) {
		return cliOptions{}, fmt.Errorf("unknown command %q", opts.Command)
	}

	fs := flag.NewFlagSet("ema-realtime "+opts.Command, flag.ContinueOnError)
	fs.SetOutput(errOut)

	if opts.Command != commandSchema {
		fs.StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
		fs.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file read before the environment")
		fs.StringVar(&opts.ConfigURL, "config-url", "", "config server to take public session settings from")
	}
	if opts.Command == commandRun || opts.Command == commandSay {
		fs.StringVar(&opts.Audio, "audio", audioMiniaudio, "audio backend: miniaudio or portaudio")
	}
	switch opts.Command {
	case commandRun:
		fs.StringVar(&opts.InputWAV, "input-wav", "", "replay a WAV file instead of capturing the microphone")
		fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
		fs.StringVar(&opts.OutDir, "out", ".", "directory transcripts are written to on stop")
		fs.DurationVar(&opts.HandshakeTimeout, "handshake-timeout", realtime.DefaultHandshakeTimeout, "how long to wait for the backend to accept a session")
	case commandSay:
		fs.StringVar(&opts.Voice, "voice", "", "voice to speak with; defaults to the configured TTS voice")
	}

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	if opts.Command == commandSay {
		opts.Text = strings.TrimSpace(strings.Join(fs.Args(), " "))
		if opts.Text == "" {
			return cliOptions{}, fmt.Errorf("say needs text to speak")
		}
	} else if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if opts.Audio != "" && opts.Audio != audioMiniaudio && opts.Audio != audioPortAudio {
		return cliOptions{}, fmt.Errorf("unknown audio backend %q", opts.Audio)
	}

	return opts, nil
}

// loadConfig layers the local configuration and, when configured, the public
// settings published by a config server.
func loadConfig(ctx context.Context, opts cliOptions) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		Path:    opts.ConfigPath,
		EnvFile: opts.EnvFile,
		Lookup:  os.LookupEnv,
	})
	if err != nil {
		return config.Config{}, err
	}

	if opts.ConfigURL != "" {
		public, err := config.FetchRemote(ctx, opts.ConfigURL, nil)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Session = cfg.Session.WithPublic(*public)
	}

	return *cfg, nil
}
