package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"albumserver/internal/auth"
	"albumserver/internal/cache"
	"albumserver/internal/config"
	"albumserver/internal/database"
	"albumserver/internal/server"
	"albumserver/internal/templates"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	app := &cli.Command{
		Name:  "albumserver",
		Usage: "Serve the album catalog web pages",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "./config.toml",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd.String("config"), logger)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.WithError(err).Fatal("Album server failed")
	}
}

func run(ctx context.Context, configPath string, startupLogger *logrus.Logger) error {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, logCloser, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	// The catalog must already exist; albumdb create builds it
	db, err := database.NewDatabase(cfg.Database.Path, cfg.Database.Driver, logger)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			startupLogger.WithField("database_path", cfg.Database.Path).Error("Database does not exist. Run 'albumdb create' first.")
		}
		return err
	}
	defer db.Close()

	renderer, watcher, err := newRenderer(cfg, logger)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer watcher.Close()
	}

	albumServer := server.NewAlbumServer(cfg, db, renderer, auth.NewGate(logger), logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- albumServer.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := albumServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// newRenderer picks the embedded templates or a directory on disk, watched
// for edits when configured
func newRenderer(cfg *config.Config, logger *logrus.Logger) (*templates.Renderer, *templates.Watcher, error) {
	if cfg.Templates.Dir == "" {
		return templates.NewRenderer(templates.DefaultFS(), nil, logger), nil, nil
	}

	if !cfg.Templates.Watch {
		renderer, err := templates.NewDirRenderer(cfg.Templates.Dir, nil, logger)
		return renderer, nil, err
	}

	tc := cache.NewTemplateCache()
	renderer, err := templates.NewDirRenderer(cfg.Templates.Dir, tc, logger)
	if err != nil {
		return nil, nil, err
	}
	watcher, err := templates.NewWatcher(cfg.Templates.Dir, tc, logger)
	if err != nil {
		logger.WithError(err).Warn("Could not start template watcher, serving uncached templates")
		renderer, err := templates.NewDirRenderer(cfg.Templates.Dir, nil, logger)
		return renderer, nil, err
	}
	return renderer, watcher, nil
}
