package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rrtimeline/internal/chart"
	"rrtimeline/internal/config"
	"rrtimeline/internal/feed"
	"rrtimeline/internal/metrics"
	"rrtimeline/internal/results"
	"rrtimeline/internal/scene"
	"rrtimeline/internal/server"
	"rrtimeline/internal/storage"
	"rrtimeline/internal/transition"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live timeline and the process API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if addr != "" {
				cfg.Addr = addr
			}
			log := loggerFor(cmd, cfg.LogLevel, cfg.LogFormat)
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "Path to configuration file (YAML)")
	cmd.Flags().StringVar(&addr, "addr", "", "Address for the web server (overrides config)")
	return cmd
}

// serve runs the whole service until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	store, err := storage.NewProcessStore(filepath.Join(cfg.DataDirectory, "processes.json"))
	if err != nil {
		return fmt.Errorf("initialise storage: %w", err)
	}
	if len(cfg.Processes) > 0 && len(store.Snapshot()) == 0 {
		if err := store.Replace(cfg.Processes); err != nil {
			return fmt.Errorf("seed processes: %w", err)
		}
	}
	log.Info("process store ready", zap.Int("processes", len(store.Snapshot())), zap.String("data_directory", cfg.DataDirectory))

	calc := metrics.NewCalculator()
	calc.Bind(store.Changes())
	defer calc.Stop()

	c := chart.New(layoutFromConfig(cfg.Chart), transition.SystemClock, log)
	view := results.New(c, results.Sources{
		Processes:             store.Changes(),
		AverageWaitingTime:    calc.AverageWaitingTime(),
		AverageTurnaroundTime: calc.AverageTurnaroundTime(),
	}, cfg.Chart.HostID, log)
	view.Mount(scene.NewDocument(cfg.Chart.HostID))
	defer view.Unmount()

	go c.Run(ctx, time.Duration(cfg.Chart.FrameMs)*time.Millisecond)

	if cfg.Upstream.Enabled {
		poller := feed.NewPoller(cfg.Upstream, store, nil, log)
		poller.Start()
		defer poller.Stop()
		log.Info("mirroring upstream", zap.String("base_url", cfg.Upstream.BaseURL))
	}

	srv := server.New(cfg.Addr, store, view, 0, log)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown", zap.Error(err))
		}
	}()

	log.Info("rrtimeline listening", zap.String("addr", cfg.Addr))
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
