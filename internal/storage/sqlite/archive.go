package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/goodtune/listenstats/internal/history"
	"github.com/goodtune/listenstats/internal/metrics"
	"github.com/goodtune/listenstats/internal/storage"
)

const batchSize = 500

// eventRecord is the archived form of history.Event. The unique index
// matches the deduplication identity used when loading exports.
type eventRecord struct {
	ID          uint   `gorm:"primaryKey"`
	TimestampNS int64  `gorm:"uniqueIndex:idx_event_identity;index"`
	Title       string `gorm:"uniqueIndex:idx_event_identity"`
	Creator     string `gorm:"uniqueIndex:idx_event_identity"`
	PlayedMS    int64  `gorm:"uniqueIndex:idx_event_identity"`
	Track       string
	Artist      string
	Album       string
	Episode     string
	Show        string
	URI         string
	Platform    string
	Country     string
	Shuffle     bool
	Offline     bool
	Skipped     bool
	SkipKnown   bool
	ReasonStart string
	ReasonEnd   string
	Content     string
	Source      string
	ImportedAt  time.Time
}

func (eventRecord) TableName() string { return "events" }

func toRecord(ev history.Event, now time.Time) eventRecord {
	return eventRecord{
		TimestampNS: ev.Timestamp.UnixNano(),
		Title:       ev.Title(),
		Creator:     ev.Creator(),
		PlayedMS:    ev.Played.Milliseconds(),
		Track:       ev.Track,
		Artist:      ev.Artist,
		Album:       ev.Album,
		Episode:     ev.Episode,
		Show:        ev.Show,
		URI:         ev.URI,
		Platform:    ev.Platform,
		Country:     ev.Country,
		Shuffle:     ev.Shuffle,
		Offline:     ev.Offline,
		Skipped:     ev.Skipped,
		SkipKnown:   ev.SkipKnown,
		ReasonStart: ev.ReasonStart,
		ReasonEnd:   ev.ReasonEnd,
		Content:     string(ev.Content),
		Source:      ev.Source,
		ImportedAt:  now,
	}
}

func (r eventRecord) event() history.Event {
	return history.Event{
		Timestamp:   time.Unix(0, r.TimestampNS).UTC(),
		Played:      time.Duration(r.PlayedMS) * time.Millisecond,
		Track:       r.Track,
		Artist:      r.Artist,
		Album:       r.Album,
		Episode:     r.Episode,
		Show:        r.Show,
		URI:         r.URI,
		Platform:    r.Platform,
		Country:     r.Country,
		Shuffle:     r.Shuffle,
		Offline:     r.Offline,
		Skipped:     r.Skipped,
		SkipKnown:   r.SkipKnown,
		ReasonStart: r.ReasonStart,
		ReasonEnd:   r.ReasonEnd,
		Content:     history.ContentType(r.Content),
		Source:      r.Source,
	}
}

// Archive implements storage.Archive on SQLite.
type Archive struct {
	db     *gorm.DB
	logger zerolog.Logger
}

var _ storage.Archive = (*Archive)(nil)
var _ history.EventReader = (*Archive)(nil)

// Open opens or creates the archive at path.
func Open(path string, log zerolog.Logger) (*Archive, error) {
	if err := storage.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	a := &Archive{
		db:     db,
		logger: log.With().Str("component", "archive").Logger(),
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&eventRecord{}); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to migrate archive: %w", err)
	}

	return a, nil
}

// SaveEvents stores events, ignoring ones already archived.
func (a *Archive) SaveEvents(ctx context.Context, events []history.Event) (int, error) {
	unique := history.Deduplicate(events)
	if len(unique) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	records := make([]eventRecord, len(unique))
	for i, ev := range unique {
		records[i] = toRecord(ev, now)
	}

	var inserted int64
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(records, batchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to archive events: %w", err)
	}

	metrics.EventsArchived.Add(float64(inserted))
	a.logger.Debug().Int("offered", len(events)).Int64("inserted", inserted).Msg("archived events")
	return int(inserted), nil
}

// Events returns every archived event ordered by timestamp.
func (a *Archive) Events(ctx context.Context) ([]history.Event, error) {
	var records []eventRecord
	if err := a.db.WithContext(ctx).Order("timestamp_ns, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	events := make([]history.Event, len(records))
	for i, r := range records {
		events[i] = r.event()
	}
	return events, nil
}

// Count returns the number of archived events.
func (a *Archive) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.db.WithContext(ctx).Model(&eventRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count archive: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
