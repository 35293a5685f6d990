package storage

import (
	"catalog_scraper/domain/entities"
	"catalog_scraper/domain/interfaces"
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// JSONFile writes the record sequence as one indented JSON array
type JSONFile struct {
	Path string
}

var _ interfaces.RecordSink = JSONFile{}

// WriteRecords - replaces the file with records, all or nothing
func (f JSONFile) WriteRecords(ctx context.Context, records []entities.ProductRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []entities.ProductRecord{}
	}

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := writeFileAtomic(f.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to save data: %w", err)
	}
	return nil
}

// ReadRecords - reads a file written by WriteRecords
func ReadRecords(path string) ([]entities.ProductRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []entities.ProductRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return records, nil
}
