// Command ema-realtime holds a spoken conversation with a realtime speech
// backend from the terminal.
//
// Usage:
//
//	ema-realtime [run] [flags]       start the conversation UI (s start, x stop, c clear, q quit)
//	ema-realtime say [flags] TEXT    speak TEXT with the configured TTS provider
//	ema-realtime voices [flags]      list voices of the configured TTS provider
//	ema-realtime schema              print the JSON schema of the config file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/koscakluka/ema-realtime/core/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "ema-realtime:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	opts, err := parseOptions(args, errOut)
	if err != nil {
		return err
	}

	if opts.Command == commandSchema {
		schema, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(schema))
		return err
	}

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return err
	}

	switch opts.Command {
	case commandSay:
		return runSay(ctx, cfg, opts)
	case commandVoices:
		return runVoices(ctx, cfg, out)
	default:
		return runConversation(ctx, cfg, opts)
	}
}
