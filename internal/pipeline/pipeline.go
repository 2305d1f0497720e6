// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one fetch-papers query end to end: search, batched
// fetch, parse and the industry filter.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/internal/logger"
	"github.com/pdiddy/fetch-papers/internal/metrics"
	"github.com/pdiddy/fetch-papers/internal/pubmed"
	"github.com/pdiddy/fetch-papers/internal/record"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

// Source is the search and fetch collaborator; *pubmed.Client satisfies it.
type Source interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
	FetchDetails(ctx context.Context, ids []string) ([]pubmed.Article, error)
}

// Options wires a run. Source is required; a nil Parser uses the default
// classifier, and nil Metrics discards observations.
type Options struct {
	Source     Source
	Parser     *record.Parser
	MaxResults int
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

// Result summarizes a run.
type Result struct {
	Query    string
	RunID    string
	Searched int
	Fetched  int

	// Skipped holds one KindMalformedRecord error per article that could
	// not be parsed.
	Skipped []error

	// Records are the parsed records with at least one industry author, in
	// search order.
	Records  []types.PaperRecord
	Duration time.Duration
}

// Run executes query. Zero matches is a successful, empty Result. A search
// or fetch failure aborts the run with no records.
func Run(ctx context.Context, query string, opts Options) (Result, error) {
	start := time.Now()
	res := Result{Query: query, RunID: uuid.NewString()}
	if opts.Source == nil {
		return res, apperr.New(apperr.KindConfig, "pipeline has no source")
	}
	parser := opts.Parser
	if parser == nil {
		parser = record.NewParser(nil, opts.Logger)
	}

	ctx = logger.WithRun(ctx, res.RunID)
	base := opts.Logger
	if base == nil {
		base = logger.Named("pipeline")
	}
	log := logger.C(ctx, base)

	log.Info().Str("query", query).Int("max_results", opts.MaxResults).Msg("searching PubMed")
	ids, err := opts.Source.Search(ctx, query, opts.MaxResults)
	if err != nil {
		return res, apperr.WithOp(err, "search")
	}
	res.Searched = len(ids)
	if len(ids) == 0 {
		log.Info().Msg("no papers matched the query")
		res.Duration = time.Since(start)
		return res, nil
	}

	log.Info().Int("ids", len(ids)).Msg("fetching paper details")
	arts, err := opts.Source.FetchDetails(ctx, ids)
	if err != nil {
		return res, apperr.WithOp(err, "fetch")
	}
	res.Fetched = len(arts)

	records, skipped := parser.ParseAll(arts)
	res.Skipped = skipped
	res.Records = Filter(records)

	opts.Metrics.AddRecords(metrics.OutcomeParsed, len(records))
	opts.Metrics.AddRecords(metrics.OutcomeSkipped, len(skipped))
	opts.Metrics.AddRecords(metrics.OutcomeIndustry, len(res.Records))

	res.Duration = time.Since(start)
	log.Info().
		Int("fetched", res.Fetched).
		Int("parsed", len(records)).
		Int("skipped", len(skipped)).
		Int("industry", len(res.Records)).
		Dur("elapsed", res.Duration).
		Msg("run complete")
	return res, nil
}

// Filter keeps the records with at least one industry-affiliated author,
// preserving order.
func Filter(records []types.PaperRecord) []types.PaperRecord {
	out := make([]types.PaperRecord, 0, len(records))
	for _, r := range records {
		if r.HasIndustryAffiliation() {
			out = append(out, r)
		}
	}
	return out
}
