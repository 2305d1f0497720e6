// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"encoding/json"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fetch-papers/pkg/types"
)

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []types.PaperRecord) error {
	if records == nil {
		records = []types.PaperRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteYAML writes records as a YAML sequence.
func WriteYAML(w io.Writer, records []types.PaperRecord) error {
	if records == nil {
		records = []types.PaperRecord{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}
