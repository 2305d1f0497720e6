// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the fetch-papers CLI. The root command
// searches PubMed and reports the papers with at least one author affiliated
// with a pharmaceutical or biotech company.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fetch-papers/internal/apperr"
)

// version is set at build time via ldflags.
var version = "dev"

// newRootCmd builds the command tree. stdout receives results; logs and
// diagnostics go to stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "fetch-papers <query>",
		Short: "Find PubMed papers with pharmaceutical or biotech company authors",
		Long: `fetch-papers runs a PubMed query, fetches the matching articles in batches,
and keeps the papers with at least one author affiliated with a pharmaceutical
or biotech company.

The query accepts full PubMed syntax, for example:

  fetch-papers "cancer immunotherapy AND 2023[dp]" -o results.csv

Results go to a console table unless --output names a file. The file format
follows --format, else the file extension (.csv, .json, .yaml), else CSV.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, args[0], stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default: ./fetch-papers.yaml or ~/.config/fetch-papers/config.yaml)")
	pf.BoolP("debug", "d", false, "print debug information during execution")
	pf.String("log-format", "console", "log format: console or json")

	f := root.Flags()
	f.Int("max-results", 100, "maximum number of PubMed IDs to retrieve")
	f.StringP("output", "o", "", "write results to this file instead of the console")
	f.StringP("file", "f", "", "alias of --output")
	f.Bool("console", false, "print a results table to stdout")
	f.String("format", "", "output format: csv, table, json or yaml")
	f.String("db", "", "also export results to a SQLite database at this path")
	f.Int("batch-size", 200, "PubMed IDs per EFetch request (max 200)")
	f.Int("workers", 4, "concurrent EFetch requests (max 10)")
	f.String("api-key", "", "NCBI API key (default: $NCBI_API_KEY)")
	f.String("email", "", "contact email sent to NCBI (default: $NCBI_EMAIL)")
	f.String("metrics-file", "", "write Prometheus metrics in text format to this file at exit")
	root.MarkFlagsMutuallyExclusive("output", "file")
	root.MarkFlagsMutuallyExclusive("output", "console")
	root.MarkFlagsMutuallyExclusive("file", "console")

	root.AddCommand(newClassifyCmd(stdout), newVersionCmd(stdout))
	return root
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return apperr.ExitOK
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, "Error: interrupted")
		return apperr.ExitGeneral
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return apperr.ExitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
