package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func nf(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func TestSummarize(t *testing.T) {
	path := writeCSV(t, "id,amount,region\n1,1,n\n2,2,s\n3,,e\n4,3,w\n5,4,n\n")

	s, err := summarize(context.Background(), discardLogger(), &request{
		filePath:  path,
		column:    "amount",
		quantiles: []float64{0.5},
		hist:      true,
		buckets:   2,
		output:    outputText,
	})
	require.NoError(t, err)

	assert.True(t, s.numeric)
	assert.EqualValues(t, 4, s.count)
	assert.Equal(t, nf(1), s.min)
	assert.Equal(t, nf(4), s.max)
	assert.Equal(t, nf(10), s.sum)
	assert.Equal(t, nf(2.5), s.mean)
	require.Len(t, s.quants, 1)
	assert.Equal(t, 0.5, s.quants[0].q)
	require.NotNil(t, s.hist)
	assert.Equal(t, int64(4), s.hist.total())
	assert.Equal(t, 1.5, s.hist.bucketSize)
}

func TestSummarizeErrors(t *testing.T) {
	path := writeCSV(t, "id,region\n1,n\n")

	tests := []struct {
		name string
		req  *request
		want any
	}{
		{
			name: "file",
			req:  &request{filePath: path + ".missing", column: "id", buckets: 10},
			want: new(*FileLoadError),
		},
		{
			name: "column",
			req:  &request{filePath: path, column: "amount", buckets: 10},
			want: new(*ColumnNotFoundError),
		},
		{
			name: "strict",
			req:  &request{filePath: path, column: "region", strict: true, buckets: 10},
			want: new(*TypeMismatchError),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := summarize(context.Background(), discardLogger(), tt.req)
			require.ErrorAs(t, err, tt.want)
			assert.Nil(t, s)
		})
	}
}

func TestSummarizeEmptyColumn(t *testing.T) {
	path := writeCSV(t, "id,amount\n1,\n2,\n")

	s, err := summarize(context.Background(), discardLogger(), &request{
		filePath:  path,
		column:    "id",
		quantiles: []float64{0.5},
		buckets:   10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.count)

	// amount has no values at all.
	s, err = summarize(context.Background(), discardLogger(), &request{
		filePath: path,
		column:   "amount",
		buckets:  10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, s.count)
	assert.Contains(t, s.String(), "N/A")
}

func TestSummaryString(t *testing.T) {
	s := &summary{
		column:  "v",
		typ:     "DOUBLE",
		numeric: true,
		count:   4,
		min:     nf(1),
		max:     nf(4),
		sum:     nf(10),
		mean:    nf(2.5),
		stddev:  nf(1.25),
		quants:  []quantile{{q: 0.5, v: nf(2)}, {q: 0.99, v: sql.NullFloat64{}}},
	}
	want := "" +
		"count            4\n" +
		"min              1\n" +
		"max              4\n" +
		"sum              10\n" +
		"mean             2.5\n" +
		"std. dev.        1.25\n" +
		"quantile 0.5     2\n" +
		"quantile 0.99    N/A"
	assert.Equal(t, want, s.String())
}

func TestSummaryStringText(t *testing.T) {
	s := &summary{
		column:  "name",
		typ:     "VARCHAR",
		count:   2,
		minText: sql.NullString{String: "alpha", Valid: true},
	}
	want := "" +
		"count    2\n" +
		"min      alpha\n" +
		"max      N/A"
	assert.Equal(t, want, s.String())
}
