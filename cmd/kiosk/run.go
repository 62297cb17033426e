package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/clive/kiosk-go/internal/analysis"
	"github.com/clive/kiosk-go/internal/capture"
	"github.com/clive/kiosk-go/internal/config"
	"github.com/clive/kiosk-go/internal/identity"
	"github.com/clive/kiosk-go/internal/input"
	"github.com/clive/kiosk-go/internal/logging"
	"github.com/clive/kiosk-go/internal/session"
	"github.com/clive/kiosk-go/internal/tui"
)

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		triggerPath string
		debug       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the kiosk session",
		Long: "Starts the full-screen kiosk. Send SIGHUP to force the session back to the welcome screen. " +
			"--trigger reads advance/reanalyze/reset words from a file or FIFO, one per line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if debug {
				cfg.UI.Debug = true
			}
			return runKiosk(cmd.Context(), cfg, triggerPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to kiosk config file (default .kiosk/config.yaml, then ~/.kiosk/config.yaml)")
	cmd.Flags().StringVar(&triggerPath, "trigger", "", "file or FIFO to read external triggers from")
	cmd.Flags().BoolVar(&debug, "debug", false, "show the debug panel on start")
	return cmd
}

// kioskDeps are the collaborators the session is built from
type kioskDeps struct {
	camera   capture.Resource
	identity identity.Client
	analysis analysis.Client
}

func newKioskDeps(cfg *config.Config, logger *slog.Logger) (kioskDeps, error) {
	camera, err := capture.New(cfg.Camera, logger)
	if err != nil {
		return kioskDeps{}, err
	}
	if cfg.Analysis.APIKey == "" {
		logger.Warn("analysis api key not set; every analysis will fail until ANTHROPIC_API_KEY is provided")
	}
	return kioskDeps{
		camera:   camera,
		identity: identity.NewHTTPClient(cfg.Identity.BaseURL, cfg.Identity.Timeout).WithBearerToken(cfg.Directory.APIKey),
		analysis: analysis.NewAnthropicClient(cfg.Analysis),
	}, nil
}

func newController(cfg *config.Config, deps kioskDeps, debug *tui.DebugPanel, logger *slog.Logger) *session.Controller {
	return session.NewController(deps.camera, deps.identity, deps.analysis, sessionOptions(cfg, debug, logger))
}

func sessionOptions(cfg *config.Config, debug *tui.DebugPanel, logger *slog.Logger) session.Options {
	return session.Options{
		TransitionDelay: cfg.Timers.Transition,
		ResetDelay:      cfg.Timers.Reset,
		LookupTimeout:   cfg.Identity.Timeout,
		CaptureTimeout:  cfg.Camera.CaptureTimeout,
		AnalysisTimeout: cfg.Analysis.Timeout,
		OnTransition:    debug.RecordTransition,
		Logger:          logger,
	}
}

func runKiosk(ctx context.Context, cfg *config.Config, triggerPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger, logFile, err := logging.OpenFile(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logFile.Close()

	deps, err := newKioskDeps(cfg, logger)
	if err != nil {
		return err
	}
	defer capture.Shutdown(deps.camera)

	debug := tui.NewDebugPanel(cfg.UI.Debug)
	ctl := newController(cfg, deps, debug, logger)

	opts := []tui.Option{tui.WithDebugPanel(debug)}
	if triggerPath != "" {
		trigger, err := openTrigger(triggerPath)
		if err != nil {
			return err
		}
		defer trigger.Close()
		src := input.NewLineSource(trigger, input.NewKeyMap(cfg.Keys), logger)
		opts = append(opts, tui.WithTriggers(src.Run(ctx)))
	}

	p := tea.NewProgram(
		tui.NewRootModel(ctl, cfg, opts...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	// SIGHUP abandons the current visitor's session without stopping the kiosk.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				p.Send(session.ForcedResetMsg{Reason: "SIGHUP"})
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info("kiosk starting",
		"version", Version,
		"camera", cfg.Camera.Driver,
		"identity_url", cfg.Identity.BaseURL,
		"model", cfg.Analysis.Model,
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		logger.Error("program exited", "error", err)
		return fmt.Errorf("run kiosk: %w", err)
	}
	logger.Info("kiosk stopped")
	return nil
}

// openTrigger opens a trigger file. FIFOs are opened read-write so the open
// doesn't block waiting for a writer and the stream never hits EOF when the
// writer goes away.
func openTrigger(path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open trigger: %w", err)
	}
	flag := os.O_RDONLY
	if info.Mode()&os.ModeNamedPipe != 0 {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("open trigger: %w", err)
	}
	return f, nil
}
