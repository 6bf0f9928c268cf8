package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/goodtune/listenstats/internal/config"
	"github.com/goodtune/listenstats/internal/history"
	"github.com/goodtune/listenstats/internal/storage/sqlite"
)

var importArchivePath string

var importCmd = &cobra.Command{
	Use:   "import [FILE|GLOB...]",
	Short: "Import export files into the SQLite archive",
	Long: `Read streaming history exports and store their events in the archive.
Events already archived are skipped, so overlapping exports can be imported
repeatedly. Without arguments the files in history.paths are imported.`,
	Example: `  listenstats import ~/Downloads/Spotify/Streaming_History_*.json
  listenstats import --archive /var/lib/listenstats/history.db 'exports/*.zst'`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importArchivePath, "archive", "", "Archive file (default from archive.path)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	patterns := cfg.History.Paths
	if len(args) > 0 {
		patterns = args
	}
	archivePath := cfg.Archive.Path
	if importArchivePath != "" {
		archivePath = importArchivePath
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	events, report, err := history.NewLoader(loc, logger).Load(cmd.Context(), patterns)
	if report != nil {
		for _, w := range report.Warnings {
			_, _ = color.New(color.FgYellow).Fprintf(os.Stderr, "warning: %s\n", w)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to load exports: %w", err)
	}

	archive, err := sqlite.Open(archivePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close archive")
		}
	}()

	added, err := archive.SaveEvents(cmd.Context(), events)
	if err != nil {
		return fmt.Errorf("failed to archive events: %w", err)
	}
	total, err := archive.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count archived events: %w", err)
	}

	_, _ = color.New(color.FgGreen).Fprintf(os.Stdout,
		"✅ Imported %s new event(s) from %d file(s); %s event(s) in %s\n",
		humanize.Comma(int64(added)), len(report.Files), humanize.Comma(total), archivePath)
	return nil
}
