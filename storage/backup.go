package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mallcatalog/models"
	"mallcatalog/utils"
)

const backupTimeFormat = "20060102-150405.000"

// BackupWriter snapshots the catalog before a merge touches it
type BackupWriter struct {
	dir    string
	now    func() time.Time
	logger *utils.Logger
}

// NewBackupWriter creates a BackupWriter storing snapshots under dir
func NewBackupWriter(dir string, logger *utils.Logger) *BackupWriter {
	return &BackupWriter{dir: dir, now: time.Now, logger: logger}
}

// Write stores catalog as products-<mall>-<timestamp>.json and returns the file path
func (w *BackupWriter) Write(mallID string, catalog *models.Catalog) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	products := catalog.Products
	if products == nil {
		products = []models.ProductRecord{}
	}
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("products-%s-%s.json", mallID, w.now().UTC().Format(backupTimeFormat)))
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	w.logger.Info("Catalog backup written to: %s (%d products)", path, len(products))
	return path, nil
}
