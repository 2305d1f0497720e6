// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/internal/metrics"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

func testClient(t *testing.T, srv *httptest.Server, mutate func(*types.Config)) *Client {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.PubMed.BaseURL = srv.URL
	cfg.PubMed.Timeout = 2 * time.Second
	cfg.Fetch.RetryBaseDelay = time.Millisecond
	cfg.Fetch.RetryMaxDelay = 5 * time.Millisecond
	cfg.Fetch.MaxRetries = 2
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg.PubMed, cfg.Fetch, Options{HTTPClient: srv.Client()})
}

// articleXML renders a minimal PubmedArticle.
func articleXML(pmid, title, affiliation string) string {
	return fmt.Sprintf(`<PubmedArticle><MedlineCitation Status="MEDLINE" Owner="NLM">
<PMID Version="1">%s</PMID><Article PubModel="Print"><Journal><Title>Test Journal</Title>
<JournalIssue><PubDate><Year>2023</Year><Month>Mar</Month></PubDate></JournalIssue></Journal>
<ArticleTitle>%s</ArticleTitle><AuthorList CompleteYN="Y"><Author ValidYN="Y">
<LastName>Doe</LastName><ForeName>Jane</ForeName><AffiliationInfo><Affiliation>%s</Affiliation></AffiliationInfo>
</Author></AuthorList></Article></MedlineCitation></PubmedArticle>`, pmid, title, affiliation)
}

func articleSetXML(articles ...string) string {
	return `<?xml version="1.0" ?><!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2024//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_240101.dtd">` +
		"<PubmedArticleSet>" + strings.Join(articles, "\n") + "</PubmedArticleSet>"
}

// efetchHandler answers EFetch requests with one article per requested id.
func efetchHandler(w http.ResponseWriter, r *http.Request) {
	var arts []string
	for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
		arts = append(arts, articleXML(id, "Paper "+id, "State University"))
	}
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprint(w, articleSetXML(arts...))
}

func pmids(arts []Article) []string {
	out := make([]string, len(arts))
	for i, a := range arts {
		out[i] = a.PMID()
	}
	return out
}

func seqIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", 1000+i)
	}
	return ids
}

// --- Search ---

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/esearch.fcgi"), r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "pubmed", q.Get("db"))
		assert.Equal(t, "cancer immunotherapy", q.Get("term"))
		assert.Equal(t, "json", q.Get("retmode"))
		assert.Equal(t, "25", q.Get("retmax"))
		assert.Equal(t, "k123", q.Get("api_key"))
		assert.Equal(t, "me@example.com", q.Get("email"))
		assert.Equal(t, "fetch-papers", q.Get("tool"))
		assert.Equal(t, "fetch-papers/0.1", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"header":{"type":"esearch","version":"0.3"},"esearchresult":{"count":"3","retmax":"3","retstart":"0","idlist":["39000003","39000001","39000002"],"querytranslation":"cancer[All Fields]"}}`)
	}))
	defer srv.Close()

	c := testClient(t, srv, func(cfg *types.Config) {
		cfg.PubMed.APIKey = "k123"
		cfg.PubMed.Email = "me@example.com"
	})
	ids, err := c.Search(context.Background(), "  cancer immunotherapy ", 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"39000003", "39000001", "39000002"}, ids)
}

func TestSearchDefaultsMaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("retmax"))
		assert.Empty(t, r.URL.Query().Get("api_key"))
		fmt.Fprint(w, `{"esearchresult":{"count":"0","idlist":[]}}`)
	}))
	defer srv.Close()

	ids, err := testClient(t, srv, nil).Search(context.Background(), "rare thing", 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearchEmptyQuery(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, nil).Search(context.Background(), "   ", 10)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindQuery))
	assert.Zero(t, hits.Load(), "no request for an empty query")
}

func TestSearchQueryErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    apperr.Kind
		message string
	}{
		{"esearch ERROR", 200, `{"esearchresult":{"ERROR":"Invalid query syntax"}}`, apperr.KindQuery, "Invalid query syntax"},
		{"phrase not found", 200, `{"esearchresult":{"count":"0","idlist":[],"errorlist":{"phrasesnotfound":["zzqx"],"fieldsnotfound":[]}}}`, apperr.KindQuery, "zzqx"},
		{"bad request", 400, `{"error":"bad term"}`, apperr.KindQuery, "HTTP 400"},
		{"api key rejected", 200, `{"error":"API key invalid","api-key":"x"}`, apperr.KindFetch, "API key invalid"},
		{"not json", 200, `<html>oops</html>`, apperr.KindFetch, "decoding ESearch response"},
		{"forbidden", 403, `denied`, apperr.KindFetch, "HTTP 403"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := testClient(t, srv, nil).Search(context.Background(), "tumor AND [bad", 10)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err), err.Error())
			assert.Contains(t, err.Error(), tt.message)
			assert.Contains(t, err.Error(), "tumor AND [bad", "error names the query")
		})
	}
}

func TestSearchRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"esearchresult":{"count":"1","idlist":["1"]}}`)
	}))
	defer srv.Close()

	m := metrics.New()
	c := testClient(t, srv, nil)
	c.metrics = m

	ids, err := c.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids)
	assert.Equal(t, int32(2), hits.Load())
	expected := `
# HELP fetch_papers_http_requests_total E-utilities HTTP responses by endpoint and status code.
# TYPE fetch_papers_http_requests_total counter
fetch_papers_http_requests_total{code="200",endpoint="esearch"} 1
fetch_papers_http_requests_total{code="429",endpoint="esearch"} 1
# HELP fetch_papers_http_retries_total Retried E-utilities requests by endpoint.
# TYPE fetch_papers_http_retries_total counter
fetch_papers_http_retries_total{endpoint="esearch"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected),
		"fetch_papers_http_requests_total", "fetch_papers_http_retries_total"))
}

func TestSearchGivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(t, srv, nil).Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindTransient))
	assert.Equal(t, int32(3), hits.Load(), "first attempt plus two retries")
}

// --- FetchDetails ---

func TestFetchDetailsPreservesInputOrder(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Duration(rand.IntN(15)) * time.Millisecond)
		efetchHandler(w, r)
	}))
	defer srv.Close()

	c := testClient(t, srv, func(cfg *types.Config) {
		cfg.Fetch.BatchSize = 3
		cfg.Fetch.Workers = 4
	})
	ids := seqIDs(31)
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	for round := 0; round < 3; round++ {
		arts, err := c.FetchDetails(context.Background(), ids)
		require.NoError(t, err)
		assert.Equal(t, ids, pmids(arts))
	}
	assert.LessOrEqual(t, peak.Load(), int32(4), "never more requests in flight than workers")
}

func TestFetchDetailsBatching(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "xml", r.URL.Query().Get("retmode"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/efetch.fcgi"), r.URL.Path)
		efetchHandler(w, r)
	}))
	defer srv.Close()

	c := testClient(t, srv, func(cfg *types.Config) {
		cfg.Fetch.BatchSize = 200
		cfg.Fetch.Workers = 1
	})
	arts, err := c.FetchDetails(context.Background(), seqIDs(450))
	require.NoError(t, err)
	assert.Len(t, arts, 450)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDetailsFailsLoudWhenABatchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("id"), "1013") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		efetchHandler(w, r)
	}))
	defer srv.Close()

	c := testClient(t, srv, func(cfg *types.Config) {
		cfg.Fetch.BatchSize = 5
		cfg.Fetch.Workers = 3
		cfg.Fetch.MaxRetries = 1
	})
	arts, err := c.FetchDetails(context.Background(), seqIDs(30))
	require.Error(t, err)
	assert.Nil(t, arts, "no partial result")
	assert.True(t, apperr.IsKind(err, apperr.KindTransient), err.Error())
	assert.Contains(t, err.Error(), "PMIDs 1010..1014")
	assert.Equal(t, apperr.ExitFetch, apperr.ExitCode(err))
}

func TestFetchDetailsClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "Error: id list is empty")
	}))
	defer srv.Close()

	_, err := testClient(t, srv, nil).FetchDetails(context.Background(), []string{"1"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindFetch))
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchDetailsMalformedXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<PubmedArticleSet><PubmedArticle><MedlineCitation>")
	}))
	defer srv.Close()

	_, err := testClient(t, srv, nil).FetchDetails(context.Background(), []string{"1", "2"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindFetch))
	assert.Contains(t, err.Error(), "PMIDs 1..2")
}

func TestFetchDetailsMissingAndUnrequestedArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleSetXML(
			articleXML("3", "Three", "x"),
			articleXML("", "No PMID", "x"),
			articleXML("1", "One", "x"),
		))
	}))
	defer srv.Close()

	arts, err := testClient(t, srv, nil).FetchDetails(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", ""}, pmids(arts))
}

func TestFetchDetailsEmpty(t *testing.T) {
	c := New(types.PubMedConfig{BaseURL: "http://127.0.0.1:1/"}, types.FetchConfig{}, Options{})
	arts, err := c.FetchDetails(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, arts)
}

func TestFetchDetailsCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		efetchHandler(w, r)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	arts, err := testClient(t, srv, nil).FetchDetails(ctx, seqIDs(10))
	require.Error(t, err)
	assert.Nil(t, arts)
}

func TestBatches(t *testing.T) {
	got := Batches(seqIDs(7), 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"1000", "1001", "1002"}, got[0])
	assert.Equal(t, []string{"1006"}, got[2])
	assert.Empty(t, Batches(nil, 3))
	assert.Len(t, Batches(seqIDs(401), 0), 3)
}

// --- XML model ---

const richArticle = `<PubmedArticleSet><PubmedArticle>
<MedlineCitation Status="MEDLINE" Owner="NLM">
  <PMID Version="1">37000001</PMID>
  <Article PubModel="Print-Electronic">
    <Journal>
      <Title>Journal of Things</Title>
      <JournalIssue CitedMedium="Internet">
        <Volume>12</Volume>
        <PubDate><MedlineDate>2019 Nov-Dec</MedlineDate></PubDate>
      </JournalIssue>
    </Journal>
    <ArticleTitle>Effect of H<sub>2</sub>O on <i>E. coli</i>
      growth.</ArticleTitle>
    <ELocationID EIdType="doi" ValidYN="Y">10.1000/eloc</ELocationID>
    <AuthorList CompleteYN="Y">
      <Author ValidYN="Y" EqualContrib="Y">
        <LastName>Roe</LastName><ForeName>Jane</ForeName><Initials>J</Initials>
        <AffiliationInfo><Affiliation>Acme Pharmaceuticals Inc., Boston, MA. jane@acme-pharma.com.</Affiliation></AffiliationInfo>
        <AffiliationInfo><Affiliation>State University, Springfield.</Affiliation></AffiliationInfo>
      </Author>
      <Author ValidYN="Y"><CollectiveName>The <i>Onco</i> Consortium</CollectiveName></Author>
    </AuthorList>
    <ArticleDate DateType="Electronic"><Year>2019</Year><Month>10</Month><Day>02</Day></ArticleDate>
  </Article>
</MedlineCitation>
<PubmedData><ArticleIdList>
  <ArticleId IdType="pubmed">37000001</ArticleId>
  <ArticleId IdType="doi">10.1000/xyz</ArticleId>
</ArticleIdList></PubmedData>
</PubmedArticle>
<PubmedBookArticle><BookDocument><PMID>1</PMID></BookDocument></PubmedBookArticle>
</PubmedArticleSet>`

func TestArticleDecode(t *testing.T) {
	var set ArticleSet
	require.NoError(t, xml.Unmarshal([]byte(richArticle), &set))
	require.Len(t, set.Articles, 1)

	a := set.Articles[0]
	assert.Equal(t, "37000001", a.PMID())
	assert.Equal(t, "10.1000/xyz", a.DOI())

	art := a.MedlineCitation.Article
	assert.Equal(t, "Effect of H2O on E. coli growth.", art.ArticleTitle.String())
	assert.Equal(t, "2019 Nov-Dec", art.Journal.JournalIssue.PubDate.MedlineDate)
	assert.Equal(t, "Journal of Things", art.Journal.Title)
	require.Len(t, art.AuthorList.Authors, 2)
	assert.Equal(t, "Y", art.AuthorList.Authors[0].EqualContrib)
	require.Len(t, art.AuthorList.Authors[0].Affiliations, 2)
	assert.Equal(t, "State University, Springfield.", art.AuthorList.Authors[0].Affiliations[1].Affiliation.String())
	assert.Equal(t, "The Onco Consortium", art.AuthorList.Authors[1].CollectiveName.String())
	require.Len(t, art.ArticleDates, 1)
	assert.Equal(t, "10", art.ArticleDates[0].Month)
}

func TestArticleDOIFallsBackToELocationID(t *testing.T) {
	a := Article{MedlineCitation: MedlineCitation{Article: ArticleData{
		ELocationIDs: []ELocationID{
			{EIdType: "pii", Value: "S0000"},
			{EIdType: "doi", ValidYN: "N", Value: "10.1/bad"},
			{EIdType: "doi", ValidYN: "Y", Value: " 10.1/good "},
		},
	}}}
	assert.Equal(t, "10.1/good", a.DOI())
	assert.Equal(t, "", Article{}.DOI())
}
