// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/internal/logger"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

const efetchPath = "efetch.fcgi"

// FetchDetails retrieves the articles for ids. IDs are fetched in batches
// of the configured size with a bounded number of requests in flight. The
// result follows the order of ids; IDs PubMed did not return are absent,
// repeated PMIDs are kept once, and articles whose PMID is not among ids
// (including ones with no PMID) follow at the end so the parser can report
// them.
//
// If any batch fails, FetchDetails returns nil and the error of the first
// failing batch, naming its PMID range. Remaining batches are cancelled.
func (c *Client) FetchDetails(ctx context.Context, ids []string) ([]Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	batches := Batches(ids, c.batchSize())
	results := make([][]Article, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers())
	for i, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			arts, err := c.fetchBatch(gctx, i, batch)
			if err != nil {
				return apperr.WithRef(err, batchRef(batch))
			}
			results[i] = arts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reorder(ids, results), nil
}

func (c *Client) fetchBatch(ctx context.Context, n int, batch []string) ([]Article, error) {
	params := c.params()
	params.Set("id", strings.Join(batch, ","))
	params.Set("retmode", "xml")

	log := logger.C(ctx, c.log).With().Int("batch", n).Str("range", batchRef(batch)).Logger()
	log.Debug().Int("ids", len(batch)).Msg("fetching batch")

	start := time.Now()
	body, err := c.get(ctx, EndpointFetch, efetchPath, params)
	c.metrics.ObserveBatch(time.Since(start))
	if err != nil {
		return nil, err
	}

	var set ArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, apperr.Wrap(err, apperr.KindFetch, "decoding EFetch response")
	}
	log.Debug().Int("articles", len(set.Articles)).Dur("elapsed", time.Since(start)).Msg("batch complete")
	return set.Articles, nil
}

// Batches splits ids into consecutive chunks of at most size elements.
func Batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchSize
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end:end])
	}
	return out
}

// reorder flattens per-batch results into the order of ids.
func reorder(ids []string, results [][]Article) []Article {
	byID := make(map[string]Article)
	var extra []Article
	for _, batch := range results {
		for _, a := range batch {
			id := a.PMID()
			if id == "" {
				extra = append(extra, a)
				continue
			}
			if _, dup := byID[id]; !dup {
				byID[id] = a
			}
		}
	}

	out := make([]Article, 0, len(byID)+len(extra))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a)
			delete(byID, id)
		}
	}
	// Whatever is left was returned without being asked for.
	for _, batch := range results {
		for _, a := range batch {
			if _, ok := byID[a.PMID()]; ok {
				out = append(out, a)
				delete(byID, a.PMID())
			}
		}
	}
	return append(out, extra...)
}

func batchRef(batch []string) string {
	if len(batch) == 0 {
		return "empty batch"
	}
	return fmt.Sprintf("PMIDs %s..%s", batch[0], batch[len(batch)-1])
}

func (c *Client) batchSize() int {
	n := c.fetch.BatchSize
	if n <= 0 {
		n = types.DefaultBatchSize
	}
	return min(n, MaxBatchSize)
}

func (c *Client) workers() int {
	if c.fetch.Workers <= 0 {
		return types.DefaultWorkers
	}
	return c.fetch.Workers
}
