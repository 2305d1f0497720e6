// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"encoding/xml"
	"strings"
)

// ArticleSet is the root of an EFetch response. PubmedBookArticle entries
// are not decoded.
type ArticleSet struct {
	XMLName  xml.Name  `xml:"PubmedArticleSet"`
	Articles []Article `xml:"PubmedArticle"`
}

// Article is one PubmedArticle element as returned by EFetch.
type Article struct {
	MedlineCitation MedlineCitation `xml:"MedlineCitation"`
	PubmedData      PubmedData      `xml:"PubmedData"`
}

// PMID returns the article's PubMed identifier, or "" when absent.
func (a Article) PMID() string { return strings.TrimSpace(a.MedlineCitation.PMID.Value) }

// DOI returns the article DOI from the ArticleIdList, falling back to a
// valid ELocationID of type doi.
func (a Article) DOI() string {
	for _, id := range a.PubmedData.ArticleIDList.IDs {
		if id.IDType == "doi" {
			if v := strings.TrimSpace(id.Value); v != "" {
				return v
			}
		}
	}
	for _, e := range a.MedlineCitation.Article.ELocationIDs {
		if e.EIdType == "doi" && e.ValidYN != "N" {
			if v := strings.TrimSpace(e.Value); v != "" {
				return v
			}
		}
	}
	return ""
}

type MedlineCitation struct {
	PMID    PMID        `xml:"PMID"`
	Article ArticleData `xml:"Article"`
}

type PMID struct {
	Version string `xml:"Version,attr"`
	Value   string `xml:",chardata"`
}

// ArticleData is the MedlineCitation/Article element.
type ArticleData struct {
	Journal         Journal       `xml:"Journal"`
	ArticleTitle    Text          `xml:"ArticleTitle"`
	VernacularTitle Text          `xml:"VernacularTitle"`
	ELocationIDs    []ELocationID `xml:"ELocationID"`
	AuthorList      AuthorList    `xml:"AuthorList"`
	ArticleDates    []ArticleDate `xml:"ArticleDate"`
}

type Journal struct {
	Title           string       `xml:"Title"`
	ISOAbbreviation string       `xml:"ISOAbbreviation"`
	JournalIssue    JournalIssue `xml:"JournalIssue"`
}

type JournalIssue struct {
	Volume  string  `xml:"Volume"`
	Issue   string  `xml:"Issue"`
	PubDate PubDate `xml:"PubDate"`
}

// PubDate holds either Year/Month/Day parts or a free-form MedlineDate
// such as "2019 Nov-Dec".
type PubDate struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	Season      string `xml:"Season"`
	MedlineDate string `xml:"MedlineDate"`
}

// ArticleDate is the electronic publication date.
type ArticleDate struct {
	DateType string `xml:"DateType,attr"`
	Year     string `xml:"Year"`
	Month    string `xml:"Month"`
	Day      string `xml:"Day"`
}

type AuthorList struct {
	CompleteYN string   `xml:"CompleteYN,attr"`
	Authors    []Author `xml:"Author"`
}

type Author struct {
	ValidYN       string `xml:"ValidYN,attr"`
	EqualContrib  string `xml:"EqualContrib,attr"`
	Corresponding string `xml:"Corresponding,attr"`

	LastName       string            `xml:"LastName"`
	ForeName       string            `xml:"ForeName"`
	Initials       string            `xml:"Initials"`
	CollectiveName Text              `xml:"CollectiveName"`
	Affiliations   []AffiliationInfo `xml:"AffiliationInfo"`
}

type AffiliationInfo struct {
	Affiliation Text `xml:"Affiliation"`
}

type ELocationID struct {
	EIdType string `xml:"EIdType,attr"`
	ValidYN string `xml:"ValidYN,attr"`
	Value   string `xml:",chardata"`
}

type PubmedData struct {
	ArticleIDList ArticleIDList `xml:"ArticleIdList"`
}

type ArticleIDList struct {
	IDs []ArticleID `xml:"ArticleId"`
}

type ArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// Text is element content with inline markup (<i>, <sup>, <sub>) flattened
// and whitespace collapsed.
type Text string

// UnmarshalXML collects the character data of the element and all of its
// descendants.
func (t *Text) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.CharData:
			b.Write(v)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				*t = Text(strings.Join(strings.Fields(b.String()), " "))
				return nil
			}
			depth--
		}
	}
}

func (t Text) String() string { return string(t) }
