// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/pdiddy/fetch-papers/pkg/types"
)

// Header is the fixed CSV column order.
var Header = []string{
	"PubmedID",
	"Title",
	"Publication Date",
	"Company Affiliation(s)",
	"Corresponding Author Email",
}

// CSVRow is one data row of a CSV file produced by WriteCSV.
type CSVRow struct {
	PMID               string
	Title              string
	PublicationDate    string
	Companies          string
	CorrespondingEmail string
}

// WriteCSV writes a header and one row per record.
func WriteCSV(w io.Writer, records []types.PaperRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.Title,
			r.PublicationDate.String(),
			r.CompanyList(),
			r.CorrespondingEmail,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for PMID %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]CSVRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty CSV: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if !slices.Equal(head, Header) {
		return nil, fmt.Errorf("unexpected CSV header %q", head)
	}

	var rows []CSVRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		rows = append(rows, CSVRow{
			PMID:               rec[0],
			Title:              rec[1],
			PublicationDate:    rec[2],
			Companies:          rec[3],
			CorrespondingEmail: rec[4],
		})
	}
}
