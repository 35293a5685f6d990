package storage

import (
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	extracted_at TEXT NOT NULL,
	record_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS products (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	position   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	product_id TEXT NOT NULL,
	shade      TEXT NOT NULL,
	details    TEXT NOT NULL,
	guarantee  TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS products_product_id ON products(product_id);
`

// Archive keeps the records of every successful run in a SQLite file
type Archive struct {
	db  *sql.DB
	now func() time.Time
}

var _ interfaces.RecordSink = (*Archive)(nil)

// OpenArchive - opens or creates the archive at path
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(archiveSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create archive tables: %w", err)
	}

	return &Archive{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}

// WriteRecords - stores records as a new run in one transaction
func (a *Archive) WriteRecords(ctx context.Context, records []entities.ProductRecord) error {
	_, err := a.WriteRun(ctx, records)
	return err
}

// WriteRun - stores records as a new run and returns its id
func (a *Archive) WriteRun(ctx context.Context, records []entities.ProductRecord) (string, error) {
	runID := uuid.NewString()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, extracted_at, record_count) VALUES (?, ?, ?)`,
		runID, a.now().UTC().Format(time.RFC3339), len(records),
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO products (run_id, position, name, product_id, shade, details, guarantee)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare product insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, runID, i, r.Name, r.ID, r.Shade, r.Details, r.Guarantee); err != nil {
			return "", fmt.Errorf("failed to insert product %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit archive: %w", err)
	}
	return runID, nil
}

// Run - returns the records of one run in extraction order
func (a *Archive) Run(ctx context.Context, runID string) ([]entities.ProductRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT name, product_id, shade, details, guarantee FROM products WHERE run_id = ? ORDER BY position`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []entities.ProductRecord
	for rows.Next() {
		var r entities.ProductRecord
		if err := rows.Scan(&r.Name, &r.ID, &r.Shade, &r.Details, &r.Guarantee); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RunCount - returns the number of archived runs
func (a *Archive) RunCount(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}
