// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package record

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/fetch-papers/internal/pubmed"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// medlineDateRe picks the leading year and optional month out of strings
// like "2019 Nov-Dec", "1998 Dec-1999 Jan" or "2000 Spring".
var medlineDateRe = regexp.MustCompile(`^\s*(\d{4})(?:\s+([A-Za-z]{3})[A-Za-z]*)?`)

// publicationDate prefers the journal issue date, then MedlineDate, then the
// first electronic article date.
func publicationDate(pd pubmed.PubDate, articleDates []pubmed.ArticleDate) types.PubDate {
	if d := ymd(pd.Year, pd.Month, pd.Day); !d.IsZero() {
		return d
	}
	if m := medlineDateRe.FindStringSubmatch(pd.MedlineDate); m != nil {
		year, _ := strconv.Atoi(m[1])
		return types.PubDate{Year: year, Month: parseMonth(m[2])}
	}
	for _, ad := range articleDates {
		if d := ymd(ad.Year, ad.Month, ad.Day); !d.IsZero() {
			return d
		}
	}
	return types.PubDate{}
}

// ymd builds a date from string parts. Invalid parts truncate the
// precision rather than failing.
func ymd(year, month, day string) types.PubDate {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 1000 || y > 9999 {
		return types.PubDate{}
	}
	d := types.PubDate{Year: y, Month: parseMonth(month)}
	if d.Month == 0 {
		return d
	}
	if n, err := strconv.Atoi(strings.TrimSpace(day)); err == nil && n >= 1 && n <= 31 {
		d.Day = n
	}
	return d
}

// parseMonth accepts "3", "03", "Mar" or "March"; anything else is 0.
func parseMonth(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	if len(s) < 3 {
		return 0
	}
	return monthNames[strings.ToLower(s[:3])]
}
