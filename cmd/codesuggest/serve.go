package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codesuggest/config"
	"codesuggest/editor"
	"codesuggest/engine"
	"codesuggest/logger"
	"codesuggest/metrics"
	"codesuggest/provider"
	"codesuggest/types"

	"github.com/neovim/go-client/nvim"
	"github.com/spf13/cobra"
)

var socketPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as the Neovim plugin host",
	Long: `Serve msgpack-RPC on stdio, as started by jobstart() from the plugin, or
connect to a running Neovim with --socket. Logs go to the state dir since
stdout carries the RPC stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		stateDir, err := cfg.ResolveStateDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			return fmt.Errorf("creating state dir: %w", err)
		}

		logFile, err := openLog(cfg.LogPath(stateDir))
		if err != nil {
			return err
		}
		ll := logger.NewLimitedLogger(logFile, logger.ParseLogLevel(cfg.Log.Level))
		defer ll.Close()

		svc, err := newService(cfg, stateDir)
		if err != nil {
			logger.Error("startup failed: %v", err)
			return err
		}

		n, err := connect(socketPath)
		if err != nil {
			logger.Error("connect to nvim: %v", err)
			return err
		}
		defer n.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return svc.run(ctx, n)
	},
}

func init() {
	serveCmd.Flags().StringVar(&socketPath, "socket", "", "connect to the Neovim listening on this address instead of stdio")
	rootCmd.AddCommand(serveCmd)
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

func connect(socket string) (*nvim.Nvim, error) {
	if socket != "" {
		return nvim.Dial(socket)
	}
	return nvim.New(os.Stdin, os.Stdout, os.Stdout, logger.Debug)
}

// service is the wired engine and editor for one Neovim session
type service struct {
	engine *engine.Engine
	editor *editor.Editor
	sink   *metrics.FileSink
}

func newService(cfg *config.Config, stateDir string) (*service, error) {
	deviceID := loadOrCreateDeviceID(stateDir)

	fetcher, err := provider.NewProvider(types.ProviderType(cfg.Provider.Type), cfg.ProviderSettings(deviceID, "codesuggest/"+Version))
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	ed, err := editor.New(cfg.Provider.MaxContextTokens)
	if err != nil {
		return nil, fmt.Errorf("creating editor: %w", err)
	}

	deps := engine.Deps{
		Fetcher: fetcher,
		Policy:  cfg.Policy(),
		Reader:  ed,
	}
	svc := &service{editor: ed}
	if cfg.Telemetry.Enabled {
		svc.sink = metrics.NewFileSink(cfg.TelemetryPath(stateDir))
		deps.Sink = svc.sink
	}

	eng, err := engine.NewEngine(deps, cfg.EngineSettings())
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	ed.Bind(eng)
	svc.engine = eng

	logger.Info("codesuggest %s: provider %s, device %s, state %s", Version, cfg.Provider.Type, deviceID, stateDir)
	return svc, nil
}

// run serves n until the connection drops or ctx ends
func (s *service) run(ctx context.Context, n *nvim.Nvim) error {
	if err := s.editor.SetNvim(n); err != nil {
		return err
	}

	s.engine.Start(ctx)
	defer s.shutdown()

	served := make(chan error, 1)
	go func() { served <- n.Serve() }()

	select {
	case err := <-served:
		if err != nil {
			logger.Warn("nvim connection closed: %v", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down: %v", context.Cause(ctx))
		return nil
	}
}

func (s *service) shutdown() {
	s.engine.Stop()
	s.editor.Close()

	c := s.engine.Counters()
	logger.Info("api total=%d ok=%d cancel=%d error=%d %v, memo ok=%d failed=%d, upload ok=%d failed=%d",
		c.APITotal, c.APIOK, c.APICancel, c.APIError, c.ErrorStatus, c.MemoOK, c.MemoFailed, c.UploadOK, c.UploadFailed)
}
