package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mallcatalog/models"
	"mallcatalog/utils"
)

// CSVWriter dumps the raw records of a run to a CSV file
type CSVWriter struct {
	dir    string
	now    func() time.Time
	logger *utils.Logger
}

// NewCSVWriter creates a new CSVWriter writing into dir
func NewCSVWriter(dir string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, now: time.Now, logger: logger}
}

// SaveRaw writes records to raw-<mall>-<timestamp>.csv and returns the file path
func (w *CSVWriter) SaveRaw(mallID string, records []models.RawRecord) (string, error) {
	// Ensure output directory exists
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("raw-%s-%s.csv", mallID, w.now().UTC().Format(backupTimeFormat)))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	// Write header
	header := []string{
		"name", "price", "original_price", "image", "link",
		"category", "vendor", "sold_out", "page_url",
	}
	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write rows
	for _, r := range records {
		row := []string{
			r.Name,
			r.Price,
			r.OriginalPrice,
			r.Image,
			r.Link,
			r.Category,
			r.Vendor,
			strconv.FormatBool(r.SoldOut),
			r.PageURL,
		}
		if err := writer.Write(row); err != nil {
			w.logger.Error("Failed to write CSV row for '%s': %v", r.Name, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}

	w.logger.Info("Raw records written to: %s (%d rows)", path, len(records))
	return path, nil
}
