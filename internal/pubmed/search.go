// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/internal/logger"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

const esearchPath = "esearch.fcgi"

// esearchResponse is the JSON body returned by esearch.fcgi with
// retmode=json. Count and RetMax arrive as strings.
type esearchResponse struct {
	Error  string `json:"error"`
	Result struct {
		Count            string   `json:"count"`
		IDList           []string `json:"idlist"`
		QueryTranslation string   `json:"querytranslation"`
		ErrorList        struct {
			PhrasesNotFound []string `json:"phrasesnotfound"`
			FieldsNotFound  []string `json:"fieldsnotfound"`
		} `json:"errorlist"`
		Error string `json:"ERROR"`
	} `json:"esearchresult"`
}

// Search returns up to maxResults PMIDs matching query, in the order
// PubMed ranks them. maxResults <= 0 uses the configured default.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, apperr.New(apperr.KindQuery, "query is empty")
	}
	if maxResults <= 0 {
		maxResults = c.fetch.MaxResults
	}
	if maxResults <= 0 {
		maxResults = types.DefaultMaxResults
	}

	params := c.params()
	params.Set("term", q)
	params.Set("retmode", "json")
	params.Set("retmax", strconv.Itoa(maxResults))

	body, err := c.get(ctx, EndpointSearch, esearchPath, params)
	if err != nil {
		if statusCode(err) == http.StatusBadRequest {
			err = apperr.Wrap(err, apperr.KindQuery, "PubMed rejected the query")
		}
		return nil, apperr.WithRef(err, fragment(q))
	}

	var sr esearchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, apperr.WithRef(apperr.Wrap(err, apperr.KindFetch, "decoding ESearch response"), fragment(q))
	}
	if sr.Error != "" {
		return nil, apperr.WithRef(apperr.Newf(apperr.KindFetch, "ESearch error: %s", sr.Error), fragment(q))
	}
	if sr.Result.Error != "" {
		return nil, apperr.WithRef(apperr.Newf(apperr.KindQuery, "ESearch error: %s", sr.Result.Error), fragment(q))
	}
	if len(sr.Result.IDList) == 0 && len(sr.Result.ErrorList.PhrasesNotFound) > 0 {
		return nil, apperr.WithRef(apperr.Newf(apperr.KindQuery, "phrase not found: %s",
			strings.Join(sr.Result.ErrorList.PhrasesNotFound, ", ")), fragment(q))
	}

	ids := make([]string, 0, len(sr.Result.IDList))
	for _, id := range sr.Result.IDList {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	logger.C(ctx, c.log).Debug().
		Str("query", fragment(q)).
		Str("count", sr.Result.Count).
		Int("ids", len(ids)).
		Str("translation", sr.Result.QueryTranslation).
		Msg("search complete")
	return ids, nil
}
