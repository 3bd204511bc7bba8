package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/javi11/trackmount/internal/api"
	"github.com/javi11/trackmount/internal/config"
	"github.com/javi11/trackmount/internal/loader"
	"github.com/javi11/trackmount/internal/metrics"
	"github.com/javi11/trackmount/internal/registry"
	"github.com/javi11/trackmount/internal/remote/localdir"
	"github.com/javi11/trackmount/internal/session"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the track API server",
		RunE:  runServe,
	}

	rootCmd.AddCommand(serveCmd)
}

func setupLogging(cfg *config.LogConfig) error {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "", "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", cfg.Level)
	}

	var w io.Writer = os.Stdout
	if cfg.File != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		})
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func openLibrary(cfg *config.Config) (*localdir.Directory, error) {
	rootAbs, err := filepath.Abs(cfg.LibraryRoot())
	if err != nil {
		return nil, fmt.Errorf("resolve library root: %w", err)
	}
	manifestAbs, err := filepath.Abs(cfg.Library.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}
	manifestRel, err := filepath.Rel(rootAbs, manifestAbs)
	if err != nil {
		return nil, fmt.Errorf("manifest must live under the library root: %w", err)
	}

	fsys := afero.NewBasePathFs(afero.NewOsFs(), rootAbs)
	return localdir.Open(fsys, manifestRel)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if err := setupLogging(&cfg.Log); err != nil {
		return err
	}
	manager := config.NewManager(cfg)

	dir, err := openLibrary(cfg)
	if err != nil {
		return fmt.Errorf("open track library: %w", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	reg := registry.New(loader.New(dir.Capabilities()), m)
	tracker := session.NewTracker()
	runner := session.NewRunner(reg, m, tracker)

	srv := api.NewServer(api.ServerOptions{
		ConfigGetter: manager.GetConfig,
		Registry:     reg,
		Runner:       runner,
		Tracker:      tracker,
		Gatherer:     promReg,
	})
	srv.SetReady(true)

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		if err := srv.Shutdown(); err != nil {
			slog.Error("API shutdown failed", "error", err)
		}
		tracker.Stop()
		reg.Shutdown()
		return nil
	})

	return g.Wait()
}
