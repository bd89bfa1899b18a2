package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"albumserver/internal/config"
	"albumserver/internal/database"
	"albumserver/internal/metadata"
	"albumserver/internal/scanner"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	app := &cli.Command{
		Name:  "albumdb",
		Usage: "Create and populate the album catalog database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "./config.toml",
			},
		},
		Commands: []*cli.Command{
			createCommand(),
			scanCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create the catalog schema and load the CSV seed data",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Replace an existing database file",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Directory holding the seed CSV files",
				Value: "datafiles",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, closeLog, err := setup(cmd)
			if err != nil {
				return err
			}
			defer closeLog()

			path := cfg.Database.Path
			if _, err := os.Stat(path); err == nil {
				if !cmd.Bool("force") {
					return fmt.Errorf("%s already exists, use --force to replace it", path)
				}
				logger.WithField("database_path", path).Warn("Removing existing database")
				if err := os.Remove(path); err != nil {
					return fmt.Errorf("failed to remove existing database: %w", err)
				}
			}

			db, err := database.Create(path, cfg.Database.Driver, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			counts, err := db.LoadSeed(cmd.String("data"))
			if err != nil {
				return fmt.Errorf("failed to load seed data: %w", err)
			}

			fmt.Printf("Created %s\n", path)
			fmt.Printf("  Artists: %d\n  Record labels: %d\n  Albums: %d\n  Tracks: %d\n",
				counts.Artists, counts.RecordLabels, counts.Albums, counts.Tracks)
			return nil
		},
	}
}

func scanCommand() *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "Import the tags of a directory of audio files into the catalog",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of files read in parallel (defaults to one per CPU)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return errors.New("a directory to scan is required")
			}

			cfg, logger, closeLog, err := setup(cmd)
			if err != nil {
				return err
			}
			defer closeLog()

			db, err := database.NewDatabase(cfg.Database.Path, cfg.Database.Driver, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			s := scanner.New(db, metadata.NewExtractor(metadata.DefaultFormats, logger), logger)
			s.SetWorkers(int(cmd.Int("workers")))

			stats, err := s.Scan(ctx, dir)
			if err != nil {
				return err
			}

			fmt.Printf("Scanned %d files in %s\n", stats.Files, stats.Elapsed.Round(time.Millisecond))
			fmt.Printf("  Imported: %d\n  Skipped: %d\n  Failed: %d\n", stats.Imported, stats.Skipped, stats.Failed)
			return nil
		},
	}
}

// setup loads the configuration named by the root --config flag and builds
// the logger from it
func setup(cmd *cli.Command) (*config.Config, *logrus.Logger, func(), error) {
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closer, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, func() { closer.Close() }, nil
}
