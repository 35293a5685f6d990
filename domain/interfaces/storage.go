package interfaces

import (
	"catalog_scraper/domain/entities"
	"context"
)

// SessionStore persists the authentication state between runs.
// Both operations are best-effort and never fail the run.
type SessionStore interface {
	// Save captures the live session and overwrites the stored snapshot
	Save(ctx context.Context, view SessionView)

	// Restore applies the stored snapshot to view, if there is one
	Restore(ctx context.Context, view SessionView)
}

// RecordSink receives the final record sequence of a successful run
type RecordSink interface {
	// WriteRecords stores records, all or nothing
	WriteRecords(ctx context.Context, records []entities.ProductRecord) error
}
