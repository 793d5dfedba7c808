package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"text/tabwriter"
)

// A request is one validated invocation.
type request struct {
	filePath  string
	column    string
	delimiter string
	strict    bool
	quantiles []float64
	hist      bool
	buckets   int
	output    string
}

type summary struct {
	column  string
	typ     string
	numeric bool
	count   int64

	// Set for numeric columns.
	min    sql.NullFloat64
	max    sql.NullFloat64
	sum    sql.NullFloat64
	mean   sql.NullFloat64
	stddev sql.NullFloat64
	quants []quantile
	hist   *histogram

	// Set for non-numeric columns; compared as strings.
	minText sql.NullString
	maxText sql.NullString
}

type quantile struct {
	q float64 // e.g., 0.9 for 90th percentile
	v sql.NullFloat64
}

// summarize loads req.filePath and computes the statistics for req.column.
// Any failure aborts the whole run.
func summarize(ctx context.Context, logger *slog.Logger, req *request) (*summary, error) {
	logger.Debug("loading csv", "path", req.filePath, "delimiter", req.delimiter)
	t, err := loadCSV(ctx, req.filePath, req.delimiter)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()
	logger.Debug("loaded csv", "path", req.filePath, "columns", t.columnNames())

	col, err := t.column(req.column)
	if err != nil {
		return nil, err
	}
	logger.Debug("selected column", "column", col.name, "type", col.typ, "numeric", col.numeric())

	s := &summary{column: col.name, typ: col.typ, numeric: col.numeric()}
	if !s.numeric {
		if req.strict {
			return nil, &TypeMismatchError{Column: col.name, Type: col.typ}
		}
		if req.hist {
			logger.Warn("column is not numeric; skipping histogram", "column", col.name, "type", col.typ)
		}
		a, err := col.textAggregates(ctx)
		if err != nil {
			return nil, err
		}
		s.count, s.minText, s.maxText = a.count, a.min, a.max
		return s, nil
	}

	a, err := col.numericAggregates(ctx)
	if err != nil {
		return nil, err
	}
	s.count = a.count
	s.min, s.max, s.sum, s.mean, s.stddev = a.min, a.max, a.sum, a.mean, a.stddev
	if s.count == 0 {
		logger.Warn("column has no values", "column", col.name)
		return s, nil
	}

	vs, err := col.quantiles(ctx, req.quantiles)
	if err != nil {
		return nil, err
	}
	for i, q := range req.quantiles {
		s.quants = append(s.quants, quantile{q: q, v: vs[i]})
	}

	if req.hist && !a.finite() {
		logger.Warn("column holds inf or nan; skipping histogram", "column", col.name)
	} else if req.hist {
		counts, err := col.bucketCounts(ctx, s.min.Float64, s.max.Float64, req.buckets)
		if err != nil {
			return nil, err
		}
		s.hist = newHistogram(s.min.Float64, s.max.Float64, counts)
	}
	logger.Debug("aggregated column", "column", col.name, "count", s.count)
	return s, nil
}

func (s *summary) String() string {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 4, ' ', 0)

	fmt.Fprintf(tw, "count\t%d\n", s.count)
	if !s.numeric {
		fmt.Fprintf(tw, "min\t%s\n", formatText(s.minText))
		fmt.Fprintf(tw, "max\t%s\n", formatText(s.maxText))
	} else {
		fmt.Fprintf(tw, "min\t%s\n", formatFloat(s.min))
		fmt.Fprintf(tw, "max\t%s\n", formatFloat(s.max))
		fmt.Fprintf(tw, "sum\t%s\n", formatFloat(s.sum))
		fmt.Fprintf(tw, "mean\t%s\n", formatFloat(s.mean))
		fmt.Fprintf(tw, "std. dev.\t%s\n", formatFloat(s.stddev))
		for _, q := range s.quants {
			fmt.Fprintf(tw, "quantile %g\t%s\n", q.q, formatFloat(q.v))
		}
	}

	tw.Flush()
	b := buf.Bytes()
	return string(b[:len(b)-1]) // drop the \n
}

const missing = "N/A"

func formatFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return missing
	}
	return strconv.FormatFloat(v.Float64, 'g', -1, 64)
}

func formatText(v sql.NullString) string {
	if !v.Valid {
		return missing
	}
	return v.String
}
