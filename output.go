package main

import (
	"database/sql"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"
)

const (
	outputText = "text"
	outputJSON = "json"
)

func validateOutputFormat(output string) error {
	if output != outputText && output != outputJSON {
		return usageErrorf("unsupported output format %q: use %q or %q", output, outputText, outputJSON)
	}
	return nil
}

// jsonSummary is the machine-readable form of a summary. Statistics that
// are NULL, non-finite, or not computed for the column's type are omitted.
type jsonSummary struct {
	Column    string         `json:"column"`
	Type      string         `json:"type"`
	Count     int64          `json:"count"`
	Min       any            `json:"min,omitempty"`
	Max       any            `json:"max,omitempty"`
	Sum       *float64       `json:"sum,omitempty"`
	Mean      *float64       `json:"mean,omitempty"`
	StdDev    *float64       `json:"stddev,omitempty"`
	Quantiles []jsonQuantile `json:"quantiles,omitempty"`
	Histogram []jsonBucket   `json:"histogram,omitempty"`
}

type jsonQuantile struct {
	Q     float64  `json:"q"`
	Value *float64 `json:"value"`
}

type jsonBucket struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int64   `json:"count"`
}

func (s *summary) jsonSummary() *jsonSummary {
	js := &jsonSummary{
		Column: s.column,
		Type:   s.typ,
		Count:  s.count,
	}
	if !s.numeric {
		if s.minText.Valid {
			js.Min = s.minText.String
		}
		if s.maxText.Valid {
			js.Max = s.maxText.String
		}
		return js
	}
	if v := floatPtr(s.min); v != nil {
		js.Min = *v
	}
	if v := floatPtr(s.max); v != nil {
		js.Max = *v
	}
	js.Sum = floatPtr(s.sum)
	js.Mean = floatPtr(s.mean)
	js.StdDev = floatPtr(s.stddev)
	for _, q := range s.quants {
		js.Quantiles = append(js.Quantiles, jsonQuantile{Q: q.q, Value: floatPtr(q.v)})
	}
	if s.hist != nil {
		for _, b := range s.hist.buckets {
			js.Histogram = append(js.Histogram, jsonBucket{
				Start: b.start,
				End:   b.start + s.hist.bucketSize,
				Count: b.count,
			})
		}
	}
	return js
}

// floatPtr returns nil for NULL and for inf or nan, which JSON cannot
// represent.
func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid || math.IsInf(v.Float64, 0) || math.IsNaN(v.Float64) {
		return nil
	}
	f := v.Float64
	return &f
}

// writeReport prints s to w in the requested output format.
func writeReport(w io.Writer, output string, s *summary) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s.jsonSummary())
	case outputText:
		if _, err := fmt.Fprintln(w, s); err != nil {
			return err
		}
		if s.hist != nil {
			_, err := fmt.Fprintln(w, s.hist)
			return err
		}
		return nil
	}
	return validateOutputFormat(output)
}
