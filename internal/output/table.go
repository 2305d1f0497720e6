// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pdiddy/fetch-papers/pkg/types"
)

// NoResultsMessage is printed by WriteTable for an empty result.
const NoResultsMessage = "No papers with pharmaceutical/biotech company affiliations found."

const maxTitleWidth = 60

// WriteTable prints an aligned table with the CSV columns and an
// industry-authors line under each row.
func WriteTable(w io.Writer, records []types.PaperRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, NoResultsMessage)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(Header, "\t"))
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			truncate(r.Title, maxTitleWidth),
			r.PublicationDate,
			r.CompanyList(),
			r.CorrespondingEmail,
		)
		fmt.Fprintf(tw, "\t  Industry author(s): %s\n", strings.Join(r.IndustryAuthorNames(), "; "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d paper(s) with pharmaceutical/biotech company affiliations.\n", len(records))
	return err
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
