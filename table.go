package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

const (
	loadedTable = "csv_data"
	// Rows sampled by the CSV sniffer when inferring column types.
	inferSampleSize = 100
)

// A table is a CSV file materialized into an in-memory DuckDB database.
type table struct {
	db      *sql.DB
	columns []columnInfo
}

type columnInfo struct {
	name   string // as written in the header row
	engine string // as named by DuckDB, which renames duplicates
	typ    string
}

// loadCSV reads the whole file at path into a new in-memory table. An empty
// delim lets DuckDB detect the delimiter.
func loadCSV(ctx context.Context, path, delim string) (*table, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, &FileLoadError{Path: path, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return nil, &FileLoadError{Path: path, Err: errors.New("not a regular file")}
	}
	if fi.Size() == 0 {
		return nil, &FileLoadError{Path: path, Err: errors.New("empty file: no header row")}
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	q := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM read_csv(%s)", loadedTable, readCSVArgs(path, delim))
	if _, err := db.ExecContext(ctx, q); err != nil {
		_ = db.Close()
		return nil, &FileLoadError{Path: path, Err: err}
	}

	t := &table{db: db}
	if err := t.loadSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := t.loadHeader(ctx, path, delim); err != nil {
		_ = db.Close()
		return nil, &FileLoadError{Path: path, Err: err}
	}
	return t, nil
}

func readCSVArgs(path, delim string) string {
	return csvArgs(path, delim, "header = true", "sample_size = "+strconv.Itoa(inferSampleSize))
}

// rawHeaderArgs reads the header row as an ordinary record so names come
// back exactly as written.
func rawHeaderArgs(path, delim string) string {
	return csvArgs(path, delim, "header = false", "all_varchar = true")
}

func csvArgs(path, delim string, opts ...string) string {
	args := append([]string{quoteLiteral(path)}, opts...)
	if delim != "" {
		args = append(args, "delim = "+quoteLiteral(delim))
	}
	return strings.Join(args, ", ")
}

func (t *table) loadSchema(ctx context.Context) error {
	rows, err := t.db.QueryContext(ctx,
		"SELECT column_name, data_type FROM duckdb_columns() WHERE table_name = ? ORDER BY column_index",
		loadedTable)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var c columnInfo
		if err := rows.Scan(&c.engine, &c.typ); err != nil {
			return fmt.Errorf("scan schema: %w", err)
		}
		c.name = c.engine
		t.columns = append(t.columns, c)
	}
	return rows.Err()
}

// loadHeader replaces the engine's column names with the header row's own
// spelling, matched by position. If the two disagree on the number of
// columns the engine names are kept.
func (t *table) loadHeader(ctx context.Context, path, delim string) error {
	q := fmt.Sprintf("SELECT * FROM read_csv(%s) LIMIT 1", rawHeaderArgs(path, delim))
	rows, err := t.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !rows.Next() {
		return rows.Err()
	}
	header := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range header {
		dest[i] = &header[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(t.columns) {
		return nil
	}
	for i, h := range header {
		if h.Valid && h.String != "" {
			t.columns[i].name = h.String
		}
	}
	return nil
}

func (t *table) Close() error { return t.db.Close() }

func (t *table) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// column looks up name in the header row. The match is exact; with
// duplicate names the first one wins.
func (t *table) column(name string) (*column, error) {
	for _, c := range t.columns {
		if c.name == name {
			return &column{t: t, columnInfo: c}, nil
		}
	}
	return nil, &ColumnNotFoundError{Column: name, Available: t.columnNames()}
}

type column struct {
	t *table
	columnInfo
}

func (c *column) ident() string { return quoteIdent(c.engine) }

func (c *column) numeric() bool {
	switch c.typ {
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT",
		"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT", "UHUGEINT",
		"FLOAT", "DOUBLE":
		return true
	}
	return strings.HasPrefix(c.typ, "DECIMAL")
}

type numericAggregates struct {
	count  int64
	min    sql.NullFloat64
	max    sql.NullFloat64
	sum    sql.NullFloat64
	mean   sql.NullFloat64
	stddev sql.NullFloat64
}

// numericAggregates computes the numeric statistics. NULL cells are
// excluded by the engine. The standard deviation is left NULL when the
// column holds inf or nan, which DuckDB rejects as out of range.
func (c *column) numericAggregates(ctx context.Context) (numericAggregates, error) {
	var a numericAggregates
	q := fmt.Sprintf(`SELECT
	count(%[1]s),
	min(%[1]s)::DOUBLE,
	max(%[1]s)::DOUBLE,
	sum(%[1]s)::DOUBLE,
	avg(%[1]s)::DOUBLE
FROM %[2]s`, c.ident(), loadedTable)
	err := c.t.db.QueryRowContext(ctx, q).Scan(&a.count, &a.min, &a.max, &a.sum, &a.mean)
	if err != nil {
		return a, fmt.Errorf("aggregate column %q: %w", c.name, err)
	}
	if !a.finite() {
		return a, nil
	}

	q = fmt.Sprintf("SELECT stddev_pop(%s)::DOUBLE FROM %s", c.ident(), loadedTable)
	if err := c.t.db.QueryRowContext(ctx, q).Scan(&a.stddev); err != nil {
		return a, fmt.Errorf("aggregate column %q: %w", c.name, err)
	}
	return a, nil
}

// finite reports whether the column holds no inf or nan. Any such value
// makes min, max or sum non-finite.
func (a numericAggregates) finite() bool {
	for _, v := range []sql.NullFloat64{a.min, a.max, a.sum} {
		if v.Valid && (math.IsInf(v.Float64, 0) || math.IsNaN(v.Float64)) {
			return false
		}
	}
	return true
}

type textAggregates struct {
	count int64
	min   sql.NullString
	max   sql.NullString
}

// textAggregates computes the count and the lexicographic min and max.
func (c *column) textAggregates(ctx context.Context) (textAggregates, error) {
	var a textAggregates
	q := fmt.Sprintf("SELECT count(%[1]s), min(CAST(%[1]s AS VARCHAR)), max(CAST(%[1]s AS VARCHAR)) FROM %[2]s",
		c.ident(), loadedTable)
	if err := c.t.db.QueryRowContext(ctx, q).Scan(&a.count, &a.min, &a.max); err != nil {
		return a, fmt.Errorf("aggregate column %q: %w", c.name, err)
	}
	return a, nil
}

// quantiles returns the discrete quantile for each of qs, which must all be
// in (0, 1).
func (c *column) quantiles(ctx context.Context, qs []float64) ([]sql.NullFloat64, error) {
	if len(qs) == 0 {
		return nil, nil
	}
	exprs := make([]string, len(qs))
	for i, q := range qs {
		exprs[i] = fmt.Sprintf("quantile_disc(%s, %s)::DOUBLE", c.ident(), strconv.FormatFloat(q, 'f', -1, 64))
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), loadedTable)

	vs := make([]sql.NullFloat64, len(qs))
	dest := make([]any, len(qs))
	for i := range vs {
		dest[i] = &vs[i]
	}
	if err := c.t.db.QueryRowContext(ctx, q).Scan(dest...); err != nil {
		return nil, fmt.Errorf("quantiles of column %q: %w", c.name, err)
	}
	return vs, nil
}

// bucketCounts counts the non-NULL values falling into each of n
// equal-width buckets spanning [lo, hi]. The last bucket is closed.
func (c *column) bucketCounts(ctx context.Context, lo, hi float64, n int) ([]int64, error) {
	counts := make([]int64, n)
	if hi == lo {
		var total int64
		q := fmt.Sprintf("SELECT count(%s) FROM %s", c.ident(), loadedTable)
		if err := c.t.db.QueryRowContext(ctx, q).Scan(&total); err != nil {
			return nil, fmt.Errorf("histogram of column %q: %w", c.name, err)
		}
		counts[0] = total
		return counts, nil
	}

	size := (hi - lo) / float64(n)
	q := fmt.Sprintf(`SELECT least(CAST(floor((%[1]s::DOUBLE - ?) / ?) AS BIGINT), ?) AS bucket, count(*)
FROM %[2]s
WHERE %[1]s IS NOT NULL
GROUP BY bucket`, c.ident(), loadedTable)
	rows, err := c.t.db.QueryContext(ctx, q, lo, size, int64(n-1))
	if err != nil {
		return nil, fmt.Errorf("histogram of column %q: %w", c.name, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var bucket, count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("histogram of column %q: %w", c.name, err)
		}
		if bucket < 0 || bucket >= int64(n) {
			return nil, fmt.Errorf("histogram of column %q: bucket %d out of range", c.name, bucket)
		}
		counts[bucket] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("histogram of column %q: %w", c.name, err)
	}
	return counts, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
