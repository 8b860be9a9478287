package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hpungsan/ugcboard/internal/post"
)

// Dialect selects placeholder syntax and date binding.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// DateLayout is how InsertPost stores post_date in sqlite: UTC, second
// precision.
const DateLayout = "2006-01-02T15:04:05Z"

// SinceSlack widens the sqlite date bound. Zone-less post_date text is read
// as UTC by julianday but in the dashboard zone after normalization, and no
// zone is more than a day off.
const SinceSlack = 24 * time.Hour

// PostColumns are the canonical columns every posts table carries. They
// double as the last alias of each field in post's lookup tables.
var PostColumns = []string{
	"platform", "username", "post_date", "content",
	"likes", "comments", "shares", "menu_keyword", "media_url", "post_url",
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostFilter is the predicate set pushed down to the database.
// Zero-valued fields mean "no constraint". The rendered predicate may
// return more rows than the in-memory filter keeps, never fewer.
type PostFilter struct {
	Platform post.Platform
	Category string
	Since    time.Time
	Limit    int
}

// builder accumulates WHERE clauses and bind args for one dialect.
type builder struct {
	dialect Dialect
	where   []string
	args    []any
}

func (b *builder) placeholder() string {
	if b.dialect == Postgres {
		return fmt.Sprintf("$%d", len(b.args))
	}
	return "?"
}

func (b *builder) add(clause string, arg any) {
	b.args = append(b.args, arg)
	b.where = append(b.where, strings.Replace(clause, "?", b.placeholder(), 1))
}

// in appends "expr IN (...)" with one placeholder per value.
func (b *builder) in(expr string, values []string) {
	marks := make([]string, len(values))
	for i, v := range values {
		b.args = append(b.args, v)
		marks[i] = b.placeholder()
	}
	b.where = append(b.where, fmt.Sprintf("%s IN (%s)", expr, strings.Join(marks, ", ")))
}

// BuildSelect renders the SELECT for f against table. Sentinel and empty
// category keywords are always excluded; undated rows sort last.
func BuildSelect(d Dialect, table string, f PostFilter) (string, []any, error) {
	if !tableNamePattern.MatchString(table) {
		return "", nil, fmt.Errorf("invalid table name %q", table)
	}

	b := &builder{dialect: d}
	b.where = append(b.where, "menu_keyword IS NOT NULL", "TRIM(menu_keyword) <> ''")
	for _, s := range post.Sentinels {
		b.add("menu_keyword <> ?", s)
	}
	if f.Platform != "" {
		aliases := post.Aliases(f.Platform)
		if len(aliases) == 0 {
			aliases = []string{strings.ToLower(string(f.Platform))}
		}
		b.in("LOWER(TRIM(platform))", aliases)
	}
	if f.Category != "" {
		b.add("TRIM(menu_keyword) = ?", f.Category)
	}
	if !f.Since.IsZero() {
		if d == Postgres {
			b.add("post_date >= ?", f.Since)
		} else {
			// unparseable dates stay in; normalization decides what they are
			b.add("(julianday(post_date) IS NULL OR julianday(post_date) >= julianday(?))",
				f.Since.Add(-SinceSlack).UTC().Format(DateLayout))
		}
	}

	date := "post_date"
	if d == SQLite {
		date = "julianday(post_date)"
	}

	var q strings.Builder
	fmt.Fprintf(&q, "SELECT %s FROM %s WHERE %s ORDER BY %s IS NULL, %s DESC",
		strings.Join(PostColumns, ", "), table, strings.Join(b.where, " AND "), date, date)
	if f.Limit > 0 {
		b.args = append(b.args, f.Limit)
		fmt.Fprintf(&q, " LIMIT %s", b.placeholder())
	}
	return q.String(), b.args, nil
}

// ListPosts runs the pushed-down select and returns rows keyed by canonical
// column name.
func ListPosts(ctx context.Context, db *sql.DB, d Dialect, table string, f PostFilter) ([]post.RawRow, error) {
	query, args, err := BuildSelect(d, table, f)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]post.RawRow, 0)
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanRow scans one result row into a RawRow. NULL columns are left out.
func scanRow(rows *sql.Rows) (post.RawRow, error) {
	values := make([]any, len(PostColumns))
	ptrs := make([]any, len(PostColumns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(post.RawRow, len(PostColumns))
	for i, col := range PostColumns {
		switch v := values[i].(type) {
		case nil:
			continue
		case []byte:
			row[col] = string(v)
		case time.Time:
			row[col] = v.UTC().Format(time.RFC3339)
		default:
			row[col] = v
		}
	}
	return row, nil
}

// InsertPost writes p in canonical column form. The dashboard itself never
// writes; this backs fixtures and local seeding.
func InsertPost(ctx context.Context, db *sql.DB, table string, p post.Post) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	var date sql.NullString
	if p.HasDate() {
		date = sql.NullString{String: p.PostDate.UTC().Format(DateLayout), Valid: true}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			platform, username, post_date, content, likes, comments, shares,
			menu_keyword, media_url, post_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table)

	_, err := db.ExecContext(ctx, query,
		string(p.Platform), p.Username, date, p.Content, p.Likes, p.Comments, p.Shares,
		p.CategoryKeyword, p.MediaURL, p.PostURL,
	)
	return err
}
