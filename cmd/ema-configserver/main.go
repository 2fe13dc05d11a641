// Command ema-configserver publishes the public session settings, the
// speech vendor's voices and process metrics over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/koscakluka/ema-realtime/core/config"
	"github.com/koscakluka/ema-realtime/core/texttospeech/providers"
	"github.com/koscakluka/ema-realtime/internal/configapi"
	"github.com/koscakluka/ema-realtime/internal/metrics"
)

const scopeName = "github.com/koscakluka/ema-realtime/cmd/ema-configserver"

var logger = otelslog.NewLogger(scopeName)

type serverOptions struct {
	ConfigPath string
	EnvFile    string
	Port       int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "ema-configserver:", err)
		os.Exit(2)
	}

	if err := serve(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, "ema-configserver:", err)
		os.Exit(1)
	}
}

func parseOptions(args []string, errOut io.Writer) (serverOptions, error) {
	var opts serverOptions

	fs := flag.NewFlagSet("ema-configserver", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file")
	fs.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file read before the environment")
	fs.IntVar(&opts.Port, "port", 0, "port to listen on; overrides the configured port")
	if err := fs.Parse(args); err != nil {
		return serverOptions{}, err
	}
	if fs.NArg() > 0 {
		return serverOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return serverOptions{}, fmt.Errorf("invalid port %d", opts.Port)
	}
	return opts, nil
}

func serve(ctx context.Context, opts serverOptions) error {
	cfg, err := config.Load(config.LoadOptions{
		Path:    opts.ConfigPath,
		EnvFile: opts.EnvFile,
		Lookup:  os.LookupEnv,
	})
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	serverOpts := []configapi.Option{configapi.WithGatherer(registry)}

	provider, err := providers.New(cfg.TTS, providers.WithMetrics(metrics.New(registry)))
	if err != nil {
		logger.Warn("voices endpoint disabled", "error", err)
	} else {
		serverOpts = append(serverOpts, configapi.WithVoiceLister(provider))
	}

	e := configapi.New(cfg.Session, serverOpts...).Echo()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving config", "port", port)
		if err := e.Start(":" + strconv.Itoa(port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
