// Package source pulls raw post rows from the configured backing store:
// the per-platform CSV exports of a spreadsheet, or a posts table in
// sqlite or postgres.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/ugcboard/internal/config"
	"github.com/hpungsan/ugcboard/internal/db"
	"github.com/hpungsan/ugcboard/internal/errors"
	"github.com/hpungsan/ugcboard/internal/post"
)

// Query is the subset of a filter a source may apply before returning
// rows. Sources that cannot apply a predicate ignore it; callers always
// re-filter in memory, so pushdown only ever narrows the transfer.
type Query struct {
	Platform post.Platform
	Category string
	Since    time.Time
	Limit    int
}

// Source fetches raw records.
type Source interface {
	// Name identifies the source in logs, metrics and errors
	Name() string

	// Fetch returns raw records. Transport failures come back as
	// SOURCE_UNAVAILABLE errors.
	Fetch(ctx context.Context, q Query) ([]post.Record, error)

	// Pushdown reports whether Fetch applies Query predicates server-side
	Pushdown() bool

	Close() error
}

// Open builds the Source cfg selects. baseDir holds the sqlite database
// when cfg.DatabaseURL is empty.
func Open(ctx context.Context, cfg *config.Config, baseDir string, logger *logrus.Logger) (Source, error) {
	switch cfg.Source {
	case config.SourceSheets, "":
		return NewSheets(SheetsOptions{
			BaseURL:           cfg.SheetsBaseURL,
			SpreadsheetID:     cfg.SpreadsheetID,
			Sheets:            cfg.Sheets,
			ItemsPerSheet:     cfg.ItemsPerSheet,
			RequestsPerMinute: cfg.FetchRequestsPerMinute,
			Logger:            logger,
		}), nil

	case config.SourceSQLite:
		dir := cfg.DatabaseURL
		if dir == "" {
			dir = baseDir
		}
		conn, err := db.Init(dir)
		if err != nil {
			return nil, err
		}
		db.ConfigurePool(conn, cfg)
		return NewSQL(conn, db.SQLite, cfg.Table, logger), nil

	case config.SourcePostgres:
		conn, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		db.ConfigurePool(conn, cfg)
		return NewSQL(conn, db.Postgres, cfg.Table, logger), nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Source)
}

// SQLSource reads posts from a relational table with predicate pushdown.
type SQLSource struct {
	db      *sql.DB
	dialect db.Dialect
	table   string
	logger  *logrus.Logger
}

// NewSQL wraps an open database. The source owns conn and closes it.
func NewSQL(conn *sql.DB, dialect db.Dialect, table string, logger *logrus.Logger) *SQLSource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SQLSource{db: conn, dialect: dialect, table: table, logger: logger}
}

// Name implements Source.
func (s *SQLSource) Name() string { return s.dialect.String() }

// Pushdown implements Source.
func (s *SQLSource) Pushdown() bool { return true }

// Fetch implements Source.
func (s *SQLSource) Fetch(ctx context.Context, q Query) ([]post.Record, error) {
	start := time.Now()
	rows, err := db.ListPosts(ctx, s.db, s.dialect, s.table, db.PostFilter{
		Platform: q.Platform,
		Category: q.Category,
		Since:    q.Since,
		Limit:    q.Limit,
	})
	if err != nil {
		s.logger.WithError(err).WithField("table", s.table).Error("posts query failed")
		return nil, unavailable(s.Name(), err)
	}

	records := make([]post.Record, len(rows))
	for i, row := range rows {
		records[i] = post.Record{Row: row}
	}

	s.logger.WithFields(logrus.Fields{
		"source":  s.Name(),
		"table":   s.table,
		"rows":    len(records),
		"elapsed": time.Since(start).String(),
	}).Debug("fetched posts")
	return records, nil
}

// Close implements Source.
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// unavailable wraps a fetch failure as SOURCE_UNAVAILABLE unless it
// already carries a code.
func unavailable(name string, err error) error {
	if _, ok := err.(*errors.UGCError); ok {
		return err
	}
	return errors.NewSourceUnavailable(name, err)
}
