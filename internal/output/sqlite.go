// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/fetch-papers/internal/apperr"
	"github.com/pdiddy/fetch-papers/pkg/types"
)

var sqliteSchema = []string{
	`CREATE TABLE papers (
		pmid TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		publication_date TEXT,
		journal TEXT,
		doi TEXT,
		corresponding_email TEXT
	)`,
	`CREATE TABLE authors (
		pmid TEXT NOT NULL REFERENCES papers(pmid),
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		affiliations TEXT,
		company TEXT,
		PRIMARY KEY (pmid, position)
	)`,
	`CREATE TABLE companies (
		pmid TEXT NOT NULL REFERENCES papers(pmid),
		name TEXT NOT NULL,
		PRIMARY KEY (pmid, name)
	)`,
	`CREATE INDEX idx_companies_name ON companies(name)`,
}

// WriteSQLite exports records into a new SQLite database at path, replacing
// any existing file. The database is built next to path and renamed into
// place once committed.
func WriteSQLite(ctx context.Context, path string, records []types.PaperRecord) (err error) {
	fail := func(err error, what string) error {
		return apperr.WithRef(apperr.Wrap(err, apperr.KindOutput, what), path)
	}

	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	os.Remove(tmpPath)
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	db, err := sql.Open("sqlite3", tmpPath+"?_foreign_keys=on")
	if err != nil {
		return fail(err, "opening export database")
	}
	if err := exportRecords(ctx, db, records); err != nil {
		db.Close()
		return fail(err, "exporting to SQLite")
	}
	if err := db.Close(); err != nil {
		return fail(err, "closing export database")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fail(err, "replacing export database")
	}
	return nil
}

func exportRecords(ctx context.Context, db *sql.DB, records []types.PaperRecord) error {
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	paperStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (pmid, title, publication_date, journal, doi, corresponding_email) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing paper insert: %w", err)
	}
	defer paperStmt.Close()
	authorStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO authors (pmid, position, name, affiliations, company) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing author insert: %w", err)
	}
	defer authorStmt.Close()
	companyStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO companies (pmid, name) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing company insert: %w", err)
	}
	defer companyStmt.Close()

	for _, r := range records {
		if _, err := paperStmt.ExecContext(ctx, r.ID, r.Title, r.PublicationDate.String(),
			nullable(r.Journal), nullable(r.DOI), nullable(r.CorrespondingEmail)); err != nil {
			return fmt.Errorf("inserting PMID %s: %w", r.ID, err)
		}

		company := make(map[string]string, len(r.IndustryAuthors))
		for _, ia := range r.IndustryAuthors {
			company[ia.Author.Name] = ia.CompanyName
		}
		for i, a := range r.Authors {
			if _, err := authorStmt.ExecContext(ctx, r.ID, i+1, a.Name,
				strings.Join(a.Affiliations, "\n"), nullable(company[a.Name])); err != nil {
				return fmt.Errorf("inserting author %d of PMID %s: %w", i+1, r.ID, err)
			}
		}
		for _, c := range r.CompanyNames {
			if _, err := companyStmt.ExecContext(ctx, r.ID, c); err != nil {
				return fmt.Errorf("inserting company %q for PMID %s: %w", c, r.ID, err)
			}
		}
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
