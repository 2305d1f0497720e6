// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed talks to the NCBI E-utilities: ESearch for the PMIDs that
// match a query and EFetch for the article records behind them.
package pubmed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/internal/httputil"
	"github.com/pdiddy/fetch-papers/internal/logger"
	"github.com/pdiddy/fetch-papers/internal/metrics"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

// Endpoint labels used in logs and metrics.
const (
	EndpointSearch = "esearch"
	EndpointFetch  = "efetch"
)

// MaxBatchSize is the largest number of PMIDs sent in one EFetch request.
const MaxBatchSize = 200

// Client issues E-utilities requests. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	base    string
	pm      types.PubMedConfig
	fetch   types.FetchConfig
	metrics *metrics.Metrics
	log     *logger.Logger
}

// Options carries the collaborators of a Client. Zero values are replaced
// with defaults.
type Options struct {
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

// New builds a Client from the pubmed and fetch sections of the config.
func New(pm types.PubMedConfig, fetch types.FetchConfig, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := pm.Timeout
		if timeout <= 0 {
			timeout = types.DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("pubmed")
	}
	base := pm.BaseURL
	if base == "" {
		base = types.DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if pm.UserAgent == "" {
		pm.UserAgent = types.DefaultUserAgent
	}
	return &Client{
		http:    hc,
		base:    base,
		pm:      pm,
		fetch:   fetch,
		metrics: opts.Metrics,
		log:     log,
	}
}

// StatusError is a non-200 E-utilities response.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned HTTP %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Endpoint, e.Code, e.Body)
}

// statusCode returns the HTTP status carried by err, or 0.
func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// params returns the query parameters shared by every request.
func (c *Client) params() url.Values {
	v := url.Values{"db": {"pubmed"}}
	if c.pm.Tool != "" {
		v.Set("tool", c.pm.Tool)
	}
	if c.pm.Email != "" {
		v.Set("email", c.pm.Email)
	}
	if c.pm.APIKey != "" {
		v.Set("api_key", c.pm.APIKey)
	}
	return v
}

// get performs one GET with retries and returns the body of a 200 response.
// Retryable failures that outlast the budget come back as KindTransient;
// any other non-200 status is KindFetch wrapping a *StatusError.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	reqURL := c.base + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindFetch, "creating request")
	}
	req.Header.Set("User-Agent", c.pm.UserAgent)

	log := logger.C(ctx, c.log)
	policy := httputil.Policy{
		MaxRetries: c.fetch.MaxRetries,
		BaseDelay:  c.fetch.RetryBaseDelay,
		MaxDelay:   c.fetch.RetryMaxDelay,
		OnRetry: func(attempt, status int, delay time.Duration, err error) {
			if status != 0 {
				c.metrics.ObserveResponse(endpoint, status)
			}
			c.metrics.ObserveRetry(endpoint)
			ev := log.Debug().Str("endpoint", endpoint).Int("attempt", attempt).Dur("delay", delay)
			if status != 0 {
				ev = ev.Int("status", status)
			}
			ev.Err(err).Msg("retrying request")
		},
	}

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.http, req, policy)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", endpoint, ctx.Err())
		}
		what := "failed"
		if httputil.IsTimeout(err) {
			what = "timed out"
		}
		return nil, apperr.Wrapf(err, apperr.KindTransient, "%s request %s after %d retries", endpoint, what, c.fetch.MaxRetries)
	}
	defer resp.Body.Close()
	c.metrics.ObserveResponse(endpoint, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		se := &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		if httputil.Retryable(resp.StatusCode) {
			return nil, apperr.Wrapf(se, apperr.KindTransient, "%s still failing after %d retries", endpoint, c.fetch.MaxRetries)
		}
		return nil, apperr.Wrap(se, apperr.KindFetch, endpoint+" request rejected")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.KindTransient, "reading %s response", endpoint)
	}
	log.Debug().
		Str("endpoint", endpoint).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("request complete")
	return body, nil
}

// fragment shortens a query for error messages.
func fragment(q string) string {
	const maxRunes = 80
	r := []rune(q)
	if len(r) <= maxRunes {
		return q
	}
	return string(r[:maxRunes]) + "..."
}
