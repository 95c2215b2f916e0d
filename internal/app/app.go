package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/videotube/backend/internal/config"
	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/handlers"
	"github.com/videotube/backend/internal/httpserver"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/services"
	"github.com/videotube/backend/internal/storage"
)

// Run bootstraps the VideoTube backend application.
func Run(ctx context.Context, args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "videotube",
		Short:         "VideoTube backend API",
		Long:          `VideoTube serves the video sharing REST API and manages its database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newSweepCmd(opts),
	)
	return root
}

// load reads the configuration and installs the default logger for a command.
func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	level := cfg.LogLevel
	if o.verbose {
		level = "debug"
	}
	logger := newLogger(level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true, Level: lvl}))
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	app, err := buildDependencies(ctx, pool, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go app.sweeper.Start(sweepCtx)

	srv := httpserver.New(cfg.AppPort, handlers.NewRouter(logger, app.handlers), cfg.WriteTimeout)

	logger.Info("starting http server", "port", cfg.AppPort)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	app.notifier.Wait()
	return err
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or inspect schema migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			command := "up"
			if len(args) > 0 {
				command = args[0]
			}

			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			return db.Migrate(ctx, pool, command)
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var seedDir string

	cmd := &cobra.Command{
		Use:   "seed <name>",
		Short: "Load a SQL seed file such as seeds/dev_seed.sql",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			path := seedPath(seedDir, args[0])
			contents, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read seed %s: %w", filepath.Base(path), err)
			}

			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := pool.Exec(ctx, string(contents)); err != nil {
				return fmt.Errorf("apply seed %s: %w", filepath.Base(path), err)
			}

			logger.Info("applied seed", "seed", filepath.Base(path))
			return nil
		},
	}
	cmd.Flags().StringVar(&seedDir, "dir", "seeds", "Directory holding <name>_seed.sql files")
	return cmd
}

// seedPath resolves a seed name to a file, accepting either "dev" or "dev_seed.sql".
func seedPath(dir, name string) string {
	if !strings.HasSuffix(name, ".sql") {
		name = fmt.Sprintf("%s_seed.sql", name)
	}
	return filepath.Join(dir, name)
}

func newSweepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired pending registrations and refresh sessions once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			objectStore, err := storage.New(ctx, cfg.ObjectStore)
			if err != nil {
				return fmt.Errorf("init object storage: %w", err)
			}
			if closer, ok := objectStore.(io.Closer); ok {
				defer closer.Close()
			}
			uploader := media.NewUploader(objectStore, media.NewFFProbe(cfg.FFProbePath, cfg.FFProbeTimeout))

			set := repositories.NewSet(pool)
			sweeper := services.NewSweeper(set.PendingAccounts, set.Sessions, uploader, cfg.SweepInterval, logger)
			pending, sessions := sweeper.Sweep(ctx)
			logger.Info("sweep finished", "pending_deleted", pending, "sessions_deleted", sessions)
			return nil
		},
	}
}
