package main

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Width, in full blocks, of the longest histogram bar.
const histBlocks = 70

type histBucket struct {
	start float64
	count int64
}

type histogram struct {
	bucketSize float64
	buckets    []histBucket
}

// newHistogram lays out len(counts) buckets of equal width starting at lo.
func newHistogram(lo, hi float64, counts []int64) *histogram {
	h := &histogram{
		bucketSize: (hi - lo) / float64(len(counts)),
		buckets:    make([]histBucket, len(counts)),
	}
	for i, c := range counts {
		h.buckets[i] = histBucket{start: lo + float64(i)*h.bucketSize, count: c}
	}
	return h
}

func (h *histogram) total() int64 {
	var n int64
	for _, b := range h.buckets {
		n += b.count
	}
	return n
}

func (h *histogram) label(i int) string {
	op := "<"
	if i == len(h.buckets)-1 {
		op = "≤"
	}
	b := h.buckets[i]
	return fmt.Sprintf("%.3g ≤ x %s %.3g", b.start, op, b.start+h.bucketSize)
}

func (h *histogram) String() string {
	// Labels are aligned on the x.
	labels := make([]string, len(h.buckets))
	var padBefore, padAfter int
	var maxCount int64
	for i, b := range h.buckets {
		labels[i] = h.label(i)
		x := runeIndex(labels[i], 'x')
		padBefore = max(padBefore, x)
		padAfter = max(padAfter, utf8.RuneCountInString(labels[i])-x-1)
		maxCount = max(maxCount, b.count)
	}
	total := h.total()

	var buf bytes.Buffer
	for i, b := range h.buckets {
		x := runeIndex(labels[i], 'x')
		before := padBefore - x
		after := padAfter - utf8.RuneCountInString(labels[i]) + x + 1
		fmt.Fprintf(&buf, " %*s%s%*s │", before, "", labels[i], after, "")
		if maxCount > 0 {
			fmt.Fprint(&buf, bar(float64(b.count)/float64(maxCount)*histBlocks))
		}
		var pct float64
		if total > 0 {
			pct = 100 * float64(b.count) / float64(total)
		}
		fmt.Fprintf(&buf, " %d (%.3f%%)\n", b.count, pct)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func runeIndex(s string, r rune) int {
	for i, r2 := range []rune(s) {
		if r2 == r {
			return i
		}
	}
	return -1
}

var barEighths = [9]rune{
	' ', // empty
	'▏',
	'▎',
	'▍',
	'▌',
	'▋',
	'▊',
	'▉',
	'█', // full
}

// bar draws n blocks, rounded to the nearest eighth.
func bar(n float64) string {
	eighths := int(round(n * 8))
	full := eighths / 8
	rem := eighths % 8
	return strings.Repeat(string(barEighths[8]), full) + string(barEighths[rem])
}

// assumes positive v
func round(v float64) int64 {
	return int64(v + 0.5)
}
