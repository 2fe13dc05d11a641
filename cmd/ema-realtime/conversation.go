package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	realtime "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/config"
	"github.com/koscakluka/ema-realtime/core/transcript"
)

func runConversation(ctx context.Context, cfg config.Config, opts cliOptions) error {
	registry, m := newRegistry()
	metricsAddr := opts.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.Server.MetricsAddr
	}
	if metricsAddr != "" {
		serveMetrics(ctx, metricsAddr, registry)
	}

	devs, err := openDevices(opts)
	if err != nil {
		return err
	}
	defer devs.close()

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	// Callbacks run on the controller's goroutine and reach the UI as
	// messages.
	var program atomic.Pointer[tea.Program]
	send := func(msg tea.Msg) {
		if p := program.Load(); p != nil {
			p.Send(msg)
		}
	}

	controllerOpts := append(devs.controllerOptions(),
		realtime.WithMetrics(m),
		realtime.WithHandshakeTimeout(opts.HandshakeTimeout),
		realtime.WithStateChangeCallback(func(s realtime.State) { send(stateMsg(s)) }),
		realtime.WithTranscriptCallback(func(entries []transcript.Entry) { send(transcriptMsg(entries)) }),
		realtime.WithErrorCallback(func(err error) { send(errMsg{err}) }),
		realtime.WithExportCallback(func(artifact transcript.Artifact) {
			path := filepath.Join(opts.OutDir, artifact.Name)
			err := os.WriteFile(path, []byte(artifact.Content), 0o644)
			if err != nil {
				err = fmt.Errorf("failed to write transcript: %w", err)
			}
			send(exportMsg{path: path, err: err})
		}),
	)
	controller := realtime.NewController(cfg.Session, controllerOpts...)
	defer controller.Close()

	p := tea.NewProgram(newConversationModel(controller), tea.WithAltScreen(), tea.WithContext(ctx))
	program.Store(p)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
