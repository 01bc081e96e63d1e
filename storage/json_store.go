package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mallcatalog/models"
	"mallcatalog/utils"
)

// JSONStore keeps the catalog as a single JSON array file. Save holds <path>.lock while it
// compares the revision and replaces the file, so writers in separate processes still get
// ErrConflict instead of losing an update.
type JSONStore struct {
	path   string
	logger *utils.Logger
}

// NewJSONStore creates a store backed by the file at path. The file need not exist yet.
func NewJSONStore(path string, logger *utils.Logger) *JSONStore {
	return &JSONStore{path: path, logger: logger}
}

func revisionOf(data []byte) string {
	if data == nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *JSONStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return data, nil
}

// Load reads the catalog. A missing file is an empty catalog with an empty revision.
func (s *JSONStore) Load(ctx context.Context) (*models.Catalog, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	data, err := s.read()
	if err != nil {
		return nil, "", err
	}

	catalog := &models.Catalog{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &catalog.Products); err != nil {
			return nil, "", fmt.Errorf("failed to parse catalog %s: %w", s.path, err)
		}
	}
	return catalog, revisionOf(data), nil
}

// Save replaces the file through a temp file and rename, so readers never see a partial catalog
func (s *JSONStore) Save(ctx context.Context, catalog *models.Catalog, revision string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create catalog directory: %w", err)
	}
	release, err := acquireLock(ctx, s.path+".lock")
	if err != nil {
		return "", err
	}
	defer release()

	current, err := s.read()
	if err != nil {
		return "", err
	}
	if revisionOf(current) != revision {
		return "", ErrConflict
	}

	products := catalog.Products
	if products == nil {
		products = []models.ProductRecord{}
	}
	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode catalog: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".catalog-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close catalog: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("failed to set catalog permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return "", fmt.Errorf("failed to replace catalog: %w", err)
	}

	s.logger.Info("Catalog written to: %s (%d products)", s.path, len(products))
	return revisionOf(data), nil
}

func (s *JSONStore) Close() error {
	return nil
}
