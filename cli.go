package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "dev"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const (
	envOutput = "CSVSTATS_OUTPUT"
	envStrict = "CSVSTATS_STRICT"
)

// run executes the command line args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if args == nil {
		args = []string{} // cobra falls back to os.Args on nil
	}
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "csvstats: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var ue *UsageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	return exitError
}

type options struct {
	file      string
	column    string
	delimiter string
	strict    bool
	quantiles string
	hist      bool
	buckets   int
	output    string
	verbose   bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:   "csvstats -f <file> -c <column>",
		Short: "Display summary statistics for a column of a CSV file",
		Long: `csvstats loads a CSV file with a header row and prints summary statistics
for one column: count, min, max, sum, mean, standard deviation and quantiles.

Empty cells are treated as missing and excluded from every statistic.
Non-numeric columns are reduced to count and lexicographic min/max unless
--strict is given, in which case they are rejected.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unexpected arguments: %s", strings.Join(args, " "))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := o.applyEnv(cmd.Flags()); err != nil {
				return err
			}
			req, err := o.request()
			if err != nil {
				return err
			}
			s, err := summarize(cmd.Context(), newLogger(stderr, o.verbose), req)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), req.output, s)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.StringVarP(&o.file, "file", "f", "", "Path to the input CSV file (required)")
	flags.StringVarP(&o.column, "column", "c", "", "Name of the column to analyze (required)")
	flags.StringVarP(&o.delimiter, "delimiter", "d", "", "Field delimiter (default: detected)")
	flags.BoolVar(&o.strict, "strict", false, "Reject non-numeric columns instead of narrowing the statistics (env "+envStrict+")")
	flags.StringVarP(&o.quantiles, "quantiles", "q", "0.5,0.9,0.99", "Quantiles to record; empty to disable")
	flags.BoolVar(&o.hist, "hist", false, "Print a histogram")
	flags.IntVar(&o.buckets, "buckets", 10, "How many buckets for the histogram")
	flags.StringVarP(&o.output, "output", "o", outputText, "Output format: text or json (env "+envOutput+")")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Log progress to stderr")

	return cmd
}

// applyEnv fills options not given on the command line from the environment.
func (o *options) applyEnv(flags *pflag.FlagSet) error {
	if !flags.Changed("output") {
		if v := os.Getenv(envOutput); v != "" {
			o.output = v
		}
	}
	if !flags.Changed("strict") {
		if v := os.Getenv(envStrict); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return usageErrorf("invalid %s value %q", envStrict, v)
			}
			o.strict = b
		}
	}
	return nil
}

// request validates o. It performs no I/O.
func (o *options) request() (*request, error) {
	if o.file == "" {
		return nil, usageErrorf("missing required flag -f/--file")
	}
	if o.column == "" {
		return nil, usageErrorf("missing required flag -c/--column")
	}
	if o.buckets <= 1 {
		return nil, usageErrorf("%d is an invalid number of buckets", o.buckets)
	}
	if err := validateOutputFormat(o.output); err != nil {
		return nil, err
	}
	delim, err := parseDelimiter(o.delimiter)
	if err != nil {
		return nil, err
	}
	quants, err := parseQuantiles(o.quantiles)
	if err != nil {
		return nil, err
	}
	return &request{
		filePath:  o.file,
		column:    o.column,
		delimiter: delim,
		strict:    o.strict,
		quantiles: quants,
		hist:      o.hist,
		buckets:   o.buckets,
		output:    o.output,
	}, nil
}

func parseQuantiles(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var quants []float64
	for _, qs := range strings.Split(s, ",") {
		qs = strings.TrimSpace(qs)
		f, err := strconv.ParseFloat(qs, 64)
		if err != nil {
			return nil, usageErrorf("invalid quantile %q", qs)
		}
		if f <= 0 || f >= 1 {
			return nil, usageErrorf("quantile values must be in (0, 1); got %g", f)
		}
		quants = append(quants, f)
	}
	return quants, nil
}

func parseDelimiter(s string) (string, error) {
	switch s {
	case "":
		return "", nil
	case `\t`, "tab":
		return "\t", nil
	}
	if len([]rune(s)) != 1 {
		return "", usageErrorf("delimiter must be a single character; got %q", s)
	}
	return s, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}
