package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goodtune/listenstats/internal/analytics"
	"github.com/goodtune/listenstats/internal/config"
	"github.com/goodtune/listenstats/internal/history"
)

var (
	reportYears   []int
	reportTypes   []string
	reportArtist  string
	reportTop     int
	reportJSON    bool
	reportData    []string
	reportVerbose bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a listening report to the terminal",
	Long:  `Load the listening history and print the headline numbers, streaks, milestones and rankings.`,
	Example: `  listenstats report --year 2023 --top 5
  listenstats report --data 'exports/*.json.gz' --artist "Radiohead"
  listenstats report --type audio --json > report.json`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntSliceVar(&reportYears, "year", nil, "Only include these years (repeatable)")
	reportCmd.Flags().StringSliceVar(&reportTypes, "type", nil, "Only include these content types: audio, video")
	reportCmd.Flags().StringVar(&reportArtist, "artist", "", "Add a drill-down for this artist")
	reportCmd.Flags().IntVar(&reportTop, "top", 0, "Number of entries in rankings (default from config)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON")
	reportCmd.Flags().StringSliceVar(&reportData, "data", nil, "Export files or globs, overriding history.paths")
	reportCmd.Flags().BoolVarP(&reportVerbose, "verbose", "v", false, "Log loading progress to stderr")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if len(reportData) > 0 {
		cfg.History.Source = "files"
		cfg.History.Paths = reportData
	}

	level := zerolog.ErrorLevel
	if reportVerbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	f := analytics.Filter{Years: reportYears, Artist: reportArtist, TopN: reportTop}
	for _, t := range reportTypes {
		c, err := history.ParseContentType(t)
		if err != nil {
			return err
		}
		f.Content = append(f.Content, c)
	}
	f = f.Normalize(limitsFromConfig(cfg))

	source, closeSource, err := openSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	ds, err := source.Load(cmd.Context())
	if ds != nil && ds.Report != nil {
		for _, w := range ds.Report.Warnings {
			_, _ = color.New(color.FgYellow).Fprintf(os.Stderr, "warning: %s\n", w)
		}
	}
	if errors.Is(err, history.ErrNoData) {
		return fmt.Errorf("no listening data found in %s", strings.Join(cfg.History.Paths, ", "))
	}
	if err != nil {
		return fmt.Errorf("failed to load listening history: %w", err)
	}

	report := analytics.Compute(ds.Plays, f, analytics.Options{Milestones: cfg.Milestones()})

	if reportJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(os.Stdout, report)
	return nil
}

// printReport renders r for a terminal.
func printReport(w io.Writer, r *analytics.Report) {
	title := color.New(color.FgGreen, color.Bold)
	heading := color.New(color.FgCyan, color.Bold)
	value := color.New(color.FgWhite, color.Bold)
	muted := color.New(color.FgHiBlack)

	_, _ = title.Fprintln(w, "Listening report")
	if len(r.Filter.Years) > 0 || len(r.Filter.Content) > 0 {
		_, _ = muted.Fprintf(w, "filter: %s\n", r.Filter.Key())
	}

	if r.Empty {
		_, _ = fmt.Fprintln(w, "\nNo plays match this selection.")
		return
	}

	s := r.Summary
	_, _ = heading.Fprintln(w, "\nSummary")
	line := func(label, v string) {
		_, _ = fmt.Fprintf(w, "  %-18s ", label)
		_, _ = value.Fprintln(w, v)
	}
	line("Total hours", hours(s.TotalPlayed.Hours()))
	line("Tracks played", humanize.Comma(int64(s.Plays)))
	line("Unique tracks", humanize.Comma(int64(s.UniqueTracks)))
	line("Unique artists", humanize.Comma(int64(s.UniqueArtists)))
	line("Unique days", humanize.Comma(int64(s.UniqueDays)))
	line("Average per day", analytics.FormatHoursMinutes(s.AveragePerDay))
	line("Period", fmt.Sprintf("%s to %s", s.FirstDate, s.LastDate))

	_, _ = heading.Fprintln(w, "\nHighlights")
	if st := r.LongestStreak; st != nil {
		line("Longest streak", fmt.Sprintf("%d days (%s to %s)", st.Days, st.Start, st.End))
	}
	if st := r.LatestStreak; st != nil {
		line("Latest streak", fmt.Sprintf("%d days ending %s", st.Days, st.End))
	}
	if d := r.Highlights.PeakDay; d != nil {
		line("Biggest day", fmt.Sprintf("%s hours on %s", hours(d.Played.Hours()), d.Date))
	}
	if fp := r.Highlights.FirstPlay; fp != nil {
		line("First play", fmt.Sprintf("%s by %s on %s", fp.Title, fp.Creator, fp.Date))
	}
	if t := r.Highlights.TopTrack; t != nil {
		line("Most played", fmt.Sprintf("%s by %s, most on %s", t.Track, t.Artist, t.PeakDate))
	}

	if len(r.Milestones) > 0 {
		_, _ = heading.Fprintln(w, "\nMilestones")
		for _, m := range r.Milestones {
			line(hours(m.Threshold.Hours())+" hours", m.Date.String())
		}
	}

	printRanking(w, heading, muted, "Top tracks", r.TopTracks)
	printRanking(w, heading, muted, "Top artists", r.TopArtists)
	printRanking(w, heading, muted, "Top shows", r.TopShows)

	if r.Skips.Available {
		_, _ = heading.Fprintln(w, "\nSkips")
		line("Skipped", fmt.Sprintf("%s of %s plays",
			humanize.Comma(int64(r.Skips.Skipped)), humanize.Comma(int64(r.Skips.Known))))
	}

	if a := r.Artist; a != nil {
		_, _ = heading.Fprintf(w, "\n%s\n", a.Artist)
		line("Hours", hours(a.Played.Hours()))
		line("Unique tracks", humanize.Comma(int64(a.UniqueTracks)))
		line("Active days", humanize.Comma(int64(a.ActiveDays)))
		line("Average per day", analytics.FormatHoursMinutes(a.AveragePerDay))
		printRanking(w, heading, muted, "Top tracks by "+a.Artist, a.TopTracks)
	} else if r.Filter.Artist != "" {
		_, _ = muted.Fprintf(w, "\nNo plays by %s in this selection.\n", r.Filter.Artist)
	}
}

func printRanking(w io.Writer, heading, muted *color.Color, name string, rows []analytics.Ranked) {
	if len(rows) == 0 {
		return
	}
	_, _ = heading.Fprintf(w, "\n%s\n", name)
	for i, row := range rows {
		_, _ = fmt.Fprintf(w, "  %2d. %s", i+1, row.Name)
		if row.Detail != "" {
			_, _ = muted.Fprintf(w, " · %s", row.Detail)
		}
		_, _ = fmt.Fprintf(w, "  %s h, %s plays\n", hours(row.Played.Hours()), humanize.Comma(int64(row.Plays)))
	}
}

func hours(h float64) string {
	return humanize.FormatFloat("#,###.##", h)
}
