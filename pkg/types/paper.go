// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the fetch-papers pipeline:
// parsed paper records, their authors, and the run configuration.
package types

import (
	"fmt"
	"strings"
)

// Author is a paper author with affiliations in document order.
type Author struct {
	// Name is "ForeName LastName", or the collective name for group authors.
	Name string `json:"name" yaml:"name"`

	// Affiliations holds the raw affiliation strings as returned by PubMed.
	Affiliations []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
}

// IndustryAuthor pairs an author with the company their affiliation names.
type IndustryAuthor struct {
	Author      Author `json:"author" yaml:"author"`
	CompanyName string `json:"company_name" yaml:"company_name"`
}

// PubDate is a publication date with month or day granularity missing
// when PubMed does not provide them. A zero Year means no date.
type PubDate struct {
	Year  int `json:"year,omitempty" yaml:"year,omitempty"`
	Month int `json:"month,omitempty" yaml:"month,omitempty"`
	Day   int `json:"day,omitempty" yaml:"day,omitempty"`
}

// IsZero reports whether no date is known.
func (d PubDate) IsZero() bool { return d.Year == 0 }

// String renders YYYY, YYYY-MM or YYYY-MM-DD depending on precision.
func (d PubDate) String() string {
	switch {
	case d.Year == 0:
		return ""
	case d.Month == 0:
		return fmt.Sprintf("%04d", d.Year)
	case d.Day == 0:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
}

// PaperRecord is the normalized form of one PubMed article. It is built once
// by the record parser and not modified afterwards.
type PaperRecord struct {
	// ID is the PubMed identifier (PMID).
	ID string `json:"pmid" yaml:"pmid"`

	Title           string  `json:"title" yaml:"title"`
	PublicationDate PubDate `json:"publication_date" yaml:"publication_date"`
	Journal         string  `json:"journal,omitempty" yaml:"journal,omitempty"`
	DOI             string  `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Authors lists every author in document order.
	Authors []Author `json:"authors" yaml:"authors"`

	// IndustryAuthors lists authors with at least one industry affiliation,
	// in document order.
	IndustryAuthors []IndustryAuthor `json:"industry_authors" yaml:"industry_authors"`

	// CompanyNames is the deduplicated set of company names across all
	// industry authors, sorted for stable output.
	CompanyNames []string `json:"company_names" yaml:"company_names"`

	// CorrespondingEmail is empty when no email could be found.
	CorrespondingEmail string `json:"corresponding_email,omitempty" yaml:"corresponding_email,omitempty"`
}

// HasIndustryAffiliation reports whether at least one author is affiliated
// with a pharmaceutical or biotech company. Only such records are emitted.
func (p PaperRecord) HasIndustryAffiliation() bool {
	return len(p.IndustryAuthors) > 0
}

// IndustryAuthorNames returns the names of industry-affiliated authors.
func (p PaperRecord) IndustryAuthorNames() []string {
	names := make([]string, 0, len(p.IndustryAuthors))
	for _, a := range p.IndustryAuthors {
		names = append(names, a.Author.Name)
	}
	return names
}

// CompanyList joins CompanyNames with "; " for flat output formats.
func (p PaperRecord) CompanyList() string {
	return strings.Join(p.CompanyNames, "; ")
}
