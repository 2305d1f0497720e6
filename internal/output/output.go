// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output renders filtered paper records as CSV, a console table,
// JSON, YAML or a SQLite export. It never filters; callers pass exactly the
// records to emit.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

// Target selects the format and destination of a Write. An empty Path
// writes to Stdout.
type Target struct {
	Format types.OutputFormat
	Path   string
	Stdout io.Writer
}

// Write renders records to the target. Files are written to a temporary
// sibling and renamed into place, so a failed write never leaves a partial
// file. Errors are KindOutput and reference the path.
func Write(records []types.PaperRecord, t Target) error {
	render, err := renderer(t.Format)
	if err != nil {
		return err
	}
	if t.Path == "" {
		w := t.Stdout
		if w == nil {
			w = os.Stdout
		}
		if err := render(w, records); err != nil {
			return apperr.WithRef(apperr.Wrapf(err, apperr.KindOutput, "writing %s output", t.Format), "stdout")
		}
		return nil
	}
	return writeFileAtomic(t.Path, func(w io.Writer) error { return render(w, records) })
}

type renderFunc func(io.Writer, []types.PaperRecord) error

func renderer(f types.OutputFormat) (renderFunc, error) {
	switch f {
	case types.FormatCSV, "":
		return WriteCSV, nil
	case types.FormatTable:
		return WriteTable, nil
	case types.FormatJSON:
		return WriteJSON, nil
	case types.FormatYAML:
		return WriteYAML, nil
	default:
		return nil, apperr.Newf(apperr.KindConfig, "unknown output format %q", f)
	}
}

// ResolveFormat picks the output format: an explicit format wins, then
// console mode, then the extension of path. Without a path the console
// table is used; any other path defaults to CSV.
func ResolveFormat(explicit types.OutputFormat, path string, console bool) (types.OutputFormat, error) {
	if explicit != "" {
		if _, err := renderer(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	if console || path == "" {
		return types.FormatTable, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return types.FormatJSON, nil
	case ".yaml", ".yml":
		return types.FormatYAML, nil
	default:
		return types.FormatCSV, nil
	}
}

// writeFileAtomic writes via a temp file in the target directory and
// renames it over path on success.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	fail := func(err error, what string) error {
		return apperr.WithRef(apperr.Wrap(err, apperr.KindOutput, what), path)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fail(err, "creating output file")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return fail(err, "writing output file")
	}
	if err := tmp.Close(); err != nil {
		return fail(err, "closing output file")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fail(err, "setting output file mode")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fail(err, "replacing output file")
	}
	return nil
}

// Summary is a one-line description of what was written, for the CLI.
func Summary(n int, t Target) string {
	dest := t.Path
	if dest == "" {
		dest = "stdout"
	}
	return fmt.Sprintf("wrote %d paper(s) as %s to %s", n, t.Format, dest)
}
