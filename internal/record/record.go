// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package record turns EFetch articles into PaperRecords, classifying every
// author affiliation on the way.
package record

import (
	"slices"
	"strings"

	"github.com/pdiddy/fetch-papers/internal/affiliation"
	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/internal/logger"
	"github.com/pdiddy/fetch-papers/internal/pubmed"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

// Parser builds records. It holds no per-record state and may be shared
// across goroutines.
type Parser struct {
	classifier *affiliation.Classifier
	log        *logger.Logger
}

// NewParser returns a Parser using c for affiliation classification. A nil
// classifier uses the default markers.
func NewParser(c *affiliation.Classifier, log *logger.Logger) *Parser {
	if c == nil {
		c = affiliation.Default()
	}
	if log == nil {
		log = logger.Named("record")
	}
	return &Parser{classifier: c, log: log}
}

// Parse converts one article. A missing PMID or title yields a
// KindMalformedRecord error referencing the PMID ("unknown" when absent).
// A missing date or email is not an error.
func (p *Parser) Parse(a pubmed.Article) (types.PaperRecord, error) {
	id := a.PMID()
	if id == "" {
		return types.PaperRecord{}, apperr.WithRef(apperr.New(apperr.KindMalformedRecord, "article has no PMID"), "unknown")
	}
	art := a.MedlineCitation.Article
	title := strings.TrimSpace(art.ArticleTitle.String())
	if title == "" {
		title = strings.TrimSpace(art.VernacularTitle.String())
	}
	if title == "" {
		return types.PaperRecord{}, apperr.WithRef(apperr.New(apperr.KindMalformedRecord, "article has no title"), "PMID "+id)
	}

	rec := types.PaperRecord{
		ID:              id,
		Title:           title,
		PublicationDate: publicationDate(art.Journal.JournalIssue.PubDate, art.ArticleDates),
		Journal:         strings.TrimSpace(art.Journal.Title),
		DOI:             a.DOI(),
	}

	companies := newNameSet()
	var correspondingEmail, firstEmail string
	for _, au := range art.AuthorList.Authors {
		author := types.Author{Name: authorName(au)}
		var company string
		industry := false
		for _, info := range au.Affiliations {
			aff := strings.TrimSpace(info.Affiliation.String())
			if aff == "" {
				continue
			}
			author.Affiliations = append(author.Affiliations, aff)

			if emails := affiliation.ExtractEmails(aff); len(emails) > 0 {
				if firstEmail == "" {
					firstEmail = emails[0]
				}
				if correspondingEmail == "" && au.Corresponding == "Y" {
					correspondingEmail = emails[0]
				}
			}

			res := p.classifier.Classify(aff)
			if !res.IsIndustry {
				continue
			}
			if !industry {
				industry, company = true, res.CompanyName
			}
			companies.add(res.CompanyName)
		}
		if author.Name == "" && len(author.Affiliations) == 0 {
			continue
		}
		rec.Authors = append(rec.Authors, author)
		if industry {
			rec.IndustryAuthors = append(rec.IndustryAuthors, types.IndustryAuthor{Author: author, CompanyName: company})
		}
	}
	rec.CompanyNames = companies.sorted()

	rec.CorrespondingEmail = correspondingEmail
	if rec.CorrespondingEmail == "" {
		rec.CorrespondingEmail = firstEmail
	}
	return rec, nil
}

// ParseAll parses every article, skipping malformed ones. Each skip is
// logged at warn level and returned in the error slice; records keep the
// order of arts.
func (p *Parser) ParseAll(arts []pubmed.Article) ([]types.PaperRecord, []error) {
	records := make([]types.PaperRecord, 0, len(arts))
	var skipped []error
	for _, a := range arts {
		rec, err := p.Parse(a)
		if err != nil {
			ref := "unknown"
			if e, ok := apperr.As(err); ok {
				ref = e.Ref()
			}
			p.log.Warn().Str("pmid", ref).Err(err).Msg("skipping malformed record")
			skipped = append(skipped, err)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped
}

// authorName returns "ForeName LastName", the last name alone, or the
// collective name for group authors.
func authorName(au pubmed.Author) string {
	name := strings.TrimSpace(strings.TrimSpace(au.ForeName) + " " + strings.TrimSpace(au.LastName))
	if name != "" {
		return name
	}
	return au.CollectiveName.String()
}

// nameSet collects company names case-insensitively, keeping the first
// spelling seen.
type nameSet struct {
	seen  map[string]bool
	names []string
}

func newNameSet() *nameSet { return &nameSet{seen: make(map[string]bool)} }

func (s *nameSet) add(name string) {
	name = strings.TrimSpace(name)
	key := strings.ToLower(name)
	if name == "" || s.seen[key] {
		return
	}
	s.seen[key] = true
	s.names = append(s.names, name)
}

func (s *nameSet) sorted() []string {
	out := slices.Clone(s.names)
	slices.SortStableFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}
