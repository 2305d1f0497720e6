// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fetch-papers/internal/affiliation"
	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/internal/logger"
	"github.com/pdiddy/fetch-papers/internal/metrics"
	"github.com/pdiddy/fetch-papers/internal/output"
	"github.com/pdiddy/fetch-papers/internal/pipeline"
	"github.com/pdiddy/fetch-papers/internal/pubmed"
	"github.com/pdiddy/fetch-papers/internal/record"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

// newHTTPClient builds the one client shared by every request of a run.
func newHTTPClient(cfg types.PubMedConfig) *http.Client {
	return &http.Client{Timeout: cfg.Timeout}
}

func runFetch(cmd *cobra.Command, query string, stdout, stderr io.Writer) error {
	if strings.TrimSpace(query) == "" {
		return apperr.New(apperr.KindQuery, "query is empty")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.Get()

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		path, _ = cmd.Flags().GetString("file")
	}
	console, _ := cmd.Flags().GetBool("console")
	format, err := output.ResolveFormat(cfg.Output.Format, path, console)
	if err != nil {
		return err
	}
	target := output.Target{Format: format, Path: path, Stdout: stdout}
	dbPath, _ := cmd.Flags().GetString("db")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	m := metrics.New()
	if metricsFile != "" {
		defer func() {
			if werr := m.WriteTextfile(metricsFile); werr != nil {
				log.Warn().Err(werr).Str("path", metricsFile).Msg("could not write metrics file")
			}
		}()
	}

	client := pubmed.New(cfg.PubMed, cfg.Fetch, pubmed.Options{
		HTTPClient: newHTTPClient(cfg.PubMed),
		Metrics:    m,
		Logger:     log,
	})
	parser := record.NewParser(affiliation.FromConfig(cfg.Classifier), log)

	res, err := pipeline.Run(cmd.Context(), query, pipeline.Options{
		Source:     client,
		Parser:     parser,
		MaxResults: cfg.Fetch.MaxResults,
		Metrics:    m,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	if err := output.Write(res.Records, target); err != nil {
		return err
	}
	if dbPath != "" {
		if err := output.WriteSQLite(cmd.Context(), dbPath, res.Records); err != nil {
			return err
		}
		log.Info().Str("path", dbPath).Int("papers", len(res.Records)).Msg("exported SQLite database")
	}
	if target.Path != "" {
		fmt.Fprintln(stderr, output.Summary(len(res.Records), target))
	}
	return nil
}
