// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/internal/metrics"
	"github.com/pdiddy/fetch-papers/internal/output"
	"github.com/pdiddy/fetch-papers/internal/pubmed"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

// --- fake source ---

type fakeSource struct {
	ids       []string
	searchErr error
	arts      []pubmed.Article
	fetchErr  error
	fetched   [][]string
}

func (f *fakeSource) Search(_ context.Context, _ string, _ int) ([]string, error) {
	return f.ids, f.searchErr
}

func (f *fakeSource) FetchDetails(_ context.Context, ids []string) ([]pubmed.Article, error) {
	f.fetched = append(f.fetched, ids)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.arts, nil
}

func article(pmid, title, aff string) pubmed.Article {
	var a pubmed.Article
	a.MedlineCitation.PMID.Value = pmid
	a.MedlineCitation.Article.ArticleTitle = pubmed.Text(title)
	a.MedlineCitation.Article.AuthorList.Authors = []pubmed.Author{{
		ForeName:     "Pat",
		LastName:     "Doe",
		Affiliations: []pubmed.AffiliationInfo{{Affiliation: pubmed.Text(aff)}},
	}}
	return a
}

func quietLogger() (*zerolog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	return &l, &buf
}

// --- end to end against a fake E-utilities server ---

func TestRunEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "esearch.fcgi"):
			assert.Equal(t, "cancer immunotherapy", r.URL.Query().Get("term"))
			fmt.Fprint(w, `{"esearchresult":{"count":"2","idlist":["1","2"]}}`)
		case strings.HasSuffix(r.URL.Path, "efetch.fcgi"):
			assert.Equal(t, "1,2", r.URL.Query().Get("id"))
			fmt.Fprint(w, `<PubmedArticleSet>
<PubmedArticle><MedlineCitation><PMID>1</PMID><Article>
  <Journal><JournalIssue><PubDate><Year>2024</Year><Month>Jan</Month></PubDate></JournalIssue></Journal>
  <ArticleTitle>CAR-T in solid tumours</ArticleTitle>
  <AuthorList><Author><LastName>Lee</LastName><ForeName>Ann</ForeName>
    <AffiliationInfo><Affiliation>Acme Pharmaceuticals Inc.</Affiliation></AffiliationInfo></Author></AuthorList>
</Article></MedlineCitation></PubmedArticle>
<PubmedArticle><MedlineCitation><PMID>2</PMID><Article>
  <ArticleTitle>Checkpoint blockade outcomes</ArticleTitle>
  <AuthorList><Author><LastName>Kim</LastName><ForeName>Bo</ForeName>
    <AffiliationInfo><Affiliation>State University</Affiliation></AffiliationInfo></Author></AuthorList>
</Article></MedlineCitation></PubmedArticle>
</PubmedArticleSet>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := types.DefaultConfig()
	cfg.PubMed.BaseURL = srv.URL
	log, _ := quietLogger()
	m := metrics.New()
	client := pubmed.New(cfg.PubMed, cfg.Fetch, pubmed.Options{HTTPClient: srv.Client(), Metrics: m, Logger: log})

	res, err := Run(context.Background(), "cancer immunotherapy", Options{
		Source:     client,
		MaxResults: 10,
		Metrics:    m,
		Logger:     log,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Searched)
	assert.Equal(t, 2, res.Fetched)
	assert.Empty(t, res.Skipped)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "1", res.Records[0].ID)

	var buf bytes.Buffer
	require.NoError(t, output.Write(res.Records, output.Target{Format: types.FormatCSV, Stdout: &buf}))
	rows, err := output.ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].PMID)
	assert.Equal(t, "Acme Pharmaceuticals Inc.", rows[0].Companies)
	assert.Equal(t, "2024-01", rows[0].PublicationDate)

	expected := `
# HELP fetch_papers_records_total Paper records by outcome (parsed, skipped, industry).
# TYPE fetch_papers_records_total counter
fetch_papers_records_total{outcome="industry"} 1
fetch_papers_records_total{outcome="parsed"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "fetch_papers_records_total"))
}

// --- Run with a fake source ---

func TestRunAssignsRunID(t *testing.T) {
	log, buf := quietLogger()
	res, err := Run(context.Background(), "q", Options{Source: &fakeSource{}, Logger: log})
	require.NoError(t, err)
	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), res.RunID, "log lines carry the run id")
}

func TestRunNoMatchesIsSuccess(t *testing.T) {
	src := &fakeSource{}
	log, _ := quietLogger()
	res, err := Run(context.Background(), "nothing matches", Options{Source: src, Logger: log})
	require.NoError(t, err)
	assert.Zero(t, res.Searched)
	assert.Empty(t, res.Records)
	assert.Empty(t, src.fetched, "no fetch without ids")
}

func TestRunSkipsMalformedRecords(t *testing.T) {
	src := &fakeSource{
		ids: []string{"1", "2", "3", "4"},
		arts: []pubmed.Article{
			article("1", "A", "Acme Pharmaceuticals Inc."),
			article("2", "", "Pfizer Inc."),
			article("3", "C", "Zeta Biotech, Basel"),
			article("4", "D", "State University"),
		},
	}
	log, buf := quietLogger()
	res, err := Run(context.Background(), "q", Options{Source: src, Logger: log})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Fetched)
	require.Len(t, res.Skipped, 1)
	assert.True(t, apperr.IsKind(res.Skipped[0], apperr.KindMalformedRecord))
	require.Len(t, res.Records, 2)
	assert.Equal(t, "1", res.Records[0].ID)
	assert.Equal(t, "3", res.Records[1].ID)
	assert.Contains(t, buf.String(), "skipping malformed record")
}

func TestRunPropagatesErrors(t *testing.T) {
	log, _ := quietLogger()

	_, err := Run(context.Background(), "q", Options{
		Source: &fakeSource{searchErr: apperr.New(apperr.KindQuery, "bad query")},
		Logger: log,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.ExitQuery, apperr.ExitCode(err))
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "search", e.Op())

	res, err := Run(context.Background(), "q", Options{
		Source: &fakeSource{ids: []string{"1"}, fetchErr: apperr.New(apperr.KindTransient, "efetch still failing")},
		Logger: log,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindTransient))
	assert.Nil(t, res.Records)

	_, err = Run(context.Background(), "q", Options{Logger: log})
	assert.True(t, apperr.IsKind(err, apperr.KindConfig))

	_, err = Run(context.Background(), "q", Options{
		Source: &fakeSource{searchErr: errors.New("boom")},
		Logger: log,
	})
	assert.EqualError(t, err, "boom")
}

// --- Filter ---

func TestFilterInvariant(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for round := 0; round < 50; round++ {
		var records []types.PaperRecord
		n := r.IntN(30)
		for i := 0; i < n; i++ {
			rec := types.PaperRecord{ID: fmt.Sprintf("%d", i), Title: "t"}
			authors := r.IntN(3)
			for j := 0; j < authors; j++ {
				rec.IndustryAuthors = append(rec.IndustryAuthors, types.IndustryAuthor{CompanyName: "X"})
			}
			records = append(records, rec)
		}

		got := Filter(records)
		want := 0
		for _, rec := range records {
			if len(rec.IndustryAuthors) > 0 {
				want++
			}
		}
		require.Len(t, got, want)
		last := -1
		for _, rec := range got {
			assert.True(t, rec.HasIndustryAffiliation())
			var idx int
			fmt.Sscanf(rec.ID, "%d", &idx)
			assert.Greater(t, idx, last, "order preserved")
			last = idx
		}
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"esearchresult":{"idlist":["1"]}}`)
	}))
	defer srv.Close()

	cfg := types.DefaultConfig()
	cfg.PubMed.BaseURL = srv.URL
	log, _ := quietLogger()
	client := pubmed.New(cfg.PubMed, cfg.Fetch, pubmed.Options{HTTPClient: srv.Client(), Logger: log})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Run(ctx, "q", Options{Source: client, Logger: log})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
