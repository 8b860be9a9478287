package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/hpungsan/ugcboard/internal/config"
	"github.com/hpungsan/ugcboard/internal/errors"
	"github.com/hpungsan/ugcboard/internal/post"
)

// DefaultItemsPerSheet is how many of the newest rows each sheet contributes.
const DefaultItemsPerSheet = 10

// maxSheetBytes caps one CSV export body.
const maxSheetBytes = 32 << 20

// SheetsOptions configures a SheetsSource.
type SheetsOptions struct {
	BaseURL       string
	SpreadsheetID string
	Sheets        []config.SheetConfig
	ItemsPerSheet int

	// RequestsPerMinute throttles export requests; 0 disables throttling
	RequestsPerMinute int

	Client *http.Client
	Logger *logrus.Logger
}

// SheetsSource fetches each configured sheet's CSV export, keeps its newest
// rows and concatenates them.
type SheetsSource struct {
	opts    SheetsOptions
	client  *http.Client
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewSheets creates a SheetsSource.
func NewSheets(opts SheetsOptions) *SheetsSource {
	if opts.ItemsPerSheet <= 0 {
		opts.ItemsPerSheet = DefaultItemsPerSheet
	}
	if len(opts.Sheets) == 0 {
		opts.Sheets = config.DefaultSheets()
	}
	s := &SheetsSource{
		opts:   opts,
		client: opts.Client,
		logger: opts.Logger,
	}
	if s.client == nil {
		s.client = &http.Client{}
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	if opts.RequestsPerMinute > 0 {
		// one refresh may request every sheet at once
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), len(opts.Sheets))
	}
	return s
}

// Name implements Source.
func (s *SheetsSource) Name() string { return "sheets" }

// Pushdown implements Source. Exports are whole sheets; only the platform
// predicate narrows which sheets are requested.
func (s *SheetsSource) Pushdown() bool { return false }

// Close implements Source.
func (s *SheetsSource) Close() error { return nil }

// ExportURL returns the CSV export URL of one sheet.
func (s *SheetsSource) ExportURL(sheet string) string {
	base := strings.TrimRight(s.opts.BaseURL, "/")
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s",
		base, url.PathEscape(s.opts.SpreadsheetID), url.QueryEscape(sheet))
}

// Fetch implements Source. A sheet answering non-2xx is logged and skipped;
// the fetch fails only on transport errors or when every sheet failed.
func (s *SheetsSource) Fetch(ctx context.Context, q Query) ([]post.Record, error) {
	var records []post.Record
	requested, failed := 0, 0

	for _, sheet := range s.opts.Sheets {
		platform := post.ParsePlatform(sheet.Platform)
		if q.Platform != "" && platform != q.Platform {
			continue
		}
		requested++

		rows, err := s.fetchSheet(ctx, sheet.Name)
		if err != nil {
			if errors.Is(err, errors.ErrSourceUnavailable) {
				return nil, err
			}
			failed++
			s.logger.WithError(err).WithField("sheet", sheet.Name).Warn("skipping sheet")
			continue
		}

		header := rows.header
		dateCol := DateColumn(header)
		kept := TopK(rows.data, dateCol, s.opts.ItemsPerSheet)

		fields := logrus.Fields{"sheet": sheet.Name, "rows": len(rows.data), "kept": len(kept)}
		if dateCol == "" {
			s.logger.WithFields(fields).Warn("no date column; keeping leading rows")
		} else {
			fields["date_column"] = dateCol
			s.logger.WithFields(fields).Debug("fetched sheet")
		}

		for _, row := range kept {
			records = append(records, post.Record{Row: row, Hint: platform})
		}
	}

	if requested > 0 && failed == requested {
		return nil, errors.NewSourceUnavailable(s.Name(), fmt.Errorf("all %d sheets failed", requested))
	}
	if records == nil {
		records = []post.Record{}
	}
	return records, nil
}

type sheetRows struct {
	header []string
	data   []post.RawRow
}

// fetchSheet downloads and parses one export. Transport failures are
// SOURCE_UNAVAILABLE; HTTP status failures are plain errors.
func (s *SheetsSource) fetchSheet(ctx context.Context, sheet string) (*sheetRows, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, errors.NewSourceUnavailable(s.Name(), err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ExportURL(sheet), nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewSourceUnavailable(s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("sheet %q: HTTP %d", sheet, resp.StatusCode)
	}

	header, data, err := ParseCSV(io.LimitReader(resp.Body, maxSheetBytes))
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	return &sheetRows{header: header, data: data}, nil
}

// ParseCSV reads a header row and returns one RawRow per data row.
// Headers are trimmed; blank rows are skipped; short rows leave missing
// columns absent.
func ParseCSV(r io.Reader) ([]string, []post.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, []post.RawRow{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	rows := make([]post.RawRow, 0)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if isBlank(rec) {
			continue
		}
		row := make(post.RawRow, len(header))
		for i, h := range header {
			if h == "" || i >= len(rec) {
				continue
			}
			row[h] = rec[i]
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// DateColumn returns the first date alias present in header, or "".
func DateColumn(header []string) string {
	for _, key := range post.DateKeys {
		if slices.Contains(header, key) {
			return key
		}
	}
	return ""
}

// TopK keeps the k newest rows by dateCol. Rows with an empty date are
// dropped; unparseable dates sort last. Without a date column the first k
// rows are kept in sheet order.
func TopK(rows []post.RawRow, dateCol string, k int) []post.RawRow {
	if dateCol == "" {
		return rows[:min(k, len(rows))]
	}

	type dated struct {
		row post.RawRow
		at  time.Time
	}
	candidates := make([]dated, 0, len(rows))
	for _, row := range rows {
		raw, ok := post.Lookup(row, []string{dateCol})
		if !ok {
			continue
		}
		at, _ := post.ParseDate(raw, time.UTC)
		candidates = append(candidates, dated{row: row, at: at})
	}

	slices.SortStableFunc(candidates, func(a, b dated) int {
		return b.at.Compare(a.at)
	})

	out := make([]post.RawRow, 0, min(k, len(candidates)))
	for _, c := range candidates[:min(k, len(candidates))] {
		out = append(out, c.row)
	}
	return out
}
