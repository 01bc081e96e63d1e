package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mallcatalog/models"
	"mallcatalog/storage"
	"mallcatalog/utils"
)

var tracer = otel.Tracer("mallcatalog/services")

// MergeRecords merges one mall's normalized batch into a copy of catalog. New identities are
// appended with FirstSeen and LastUpdated set to now; known identities get their scrape-owned
// fields overwritten, and LastUpdated moves only when one of them changed. Records of other
// malls and operator-owned fields are never touched.
func MergeRecords(catalog *models.Catalog, mallID string, incoming []models.ProductRecord, now time.Time) (*models.Catalog, *models.MergeReport) {
	out := catalog.Clone()
	report := &models.MergeReport{MallID: mallID}

	idx := out.Index()
	seen := make(map[models.Key]struct{}, len(incoming))
	for i := range incoming {
		rec := incoming[i]
		key := rec.Key()
		if _, dup := seen[key]; dup {
			report.SkippedDuplicate++
			continue
		}
		seen[key] = struct{}{}

		if pos, ok := idx[key]; ok {
			report.Updated++
			if out.Products[pos].ApplyScrape(&rec) {
				out.Products[pos].LastUpdated = now
			} else {
				report.Unchanged++
			}
			continue
		}

		rec.Tags = slices.Clone(rec.Tags)
		rec.Featured = false
		rec.ClickCount = 0
		rec.FirstSeen = now
		rec.LastUpdated = now
		out.Products = append(out.Products, rec)
		idx[key] = len(out.Products) - 1
		report.Added++
	}

	report.CatalogSize = len(out.Products)
	return out, report
}

// changed reports whether a merge altered the catalog
func changed(r *models.MergeReport) bool {
	return r.Added > 0 || r.Updated > r.Unchanged
}

// Merger is the single writer of the catalog. Every mutation runs load, change and save under
// one mutex, and the whole cycle is repeated when the store reports a concurrent write.
type Merger struct {
	mu       sync.Mutex
	store    storage.CatalogStore
	backups  *storage.BackupWriter
	attempts int
	now      func() time.Time
	insights *InsightService
	logger   *utils.Logger
}

// NewMerger creates a Merger. backups may be nil to skip pre-merge snapshots.
func NewMerger(store storage.CatalogStore, backups *storage.BackupWriter, attempts int, logger *utils.Logger) *Merger {
	if attempts < 1 {
		attempts = 1
	}
	return &Merger{
		store:    store,
		backups:  backups,
		attempts: attempts,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Second) },
		insights: NewInsightService(logger),
		logger:   logger,
	}
}

// Catalog loads the current catalog
func (m *Merger) Catalog(ctx context.Context) (*models.Catalog, error) {
	catalog, _, err := m.store.Load(ctx)
	return catalog, err
}

// withConflictRetry runs cycle under the merger lock, repeating it on storage.ErrConflict
func (m *Merger) withConflictRetry(ctx context.Context, op, mallID string, cycle func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = cycle()
		if !errors.Is(err, storage.ErrConflict) {
			return err
		}
		trace.SpanFromContext(ctx).AddEvent("catalog conflict", trace.WithAttributes(attribute.Int("attempt", attempt)))
		m.logger.WithMall(mallID).Warn("Catalog changed during %s (attempt %d/%d), retrying", op, attempt, m.attempts)
	}
	return fmt.Errorf("%s %s: %w", op, mallID, err)
}

// Merge folds a mall's normalized batch into the stored catalog. rejections is copied into the
// report as-is. An empty batch or a batch that changes nothing leaves the store untouched.
func (m *Merger) Merge(ctx context.Context, mallID string, records []models.ProductRecord, rejections map[string]int) (*models.MergeReport, error) {
	ctx, span := tracer.Start(ctx, "Merger.Merge")
	defer span.End()
	span.SetAttributes(attribute.String("mall", mallID), attribute.Int("incoming", len(records)))

	logger := m.logger.WithMall(mallID)
	var report *models.MergeReport

	err := m.withConflictRetry(ctx, "merge", mallID, func() error {
		catalog, revision, err := m.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}

		merged, r := MergeRecords(catalog, mallID, records, m.now())
		report = r
		if !changed(r) {
			return nil
		}

		if m.backups != nil {
			path, err := m.backups.Write(mallID, catalog)
			if err != nil {
				return err
			}
			report.BackupPath = path
		}

		if _, err := m.store.Save(ctx, merged, revision); err != nil {
			return err
		}
		report.Stats = m.insights.Generate(mallID, merged.ForMall(mallID))
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "merge failed")
		return nil, err
	}

	if report.Stats == nil {
		// nothing was written, describe what is stored
		current, _, err := m.store.Load(ctx)
		if err == nil {
			report.Stats = m.insights.Generate(mallID, current.ForMall(mallID))
		}
	}
	report.Rejections = rejections
	for _, n := range rejections {
		report.Rejected += n
	}

	logger.Info("Merged: %d added, %d updated (%d unchanged), %d duplicates, %d rejected; catalog size %d",
		report.Added, report.Updated, report.Unchanged, report.SkippedDuplicate, report.Rejected, report.CatalogSize)
	return report, nil
}

// Retire removes every record of mallID from the catalog and returns how many were removed.
// It is the only operation that deletes records.
func (m *Merger) Retire(ctx context.Context, mallID string) (int, error) {
	removed := 0
	err := m.withConflictRetry(ctx, "retire", mallID, func() error {
		catalog, revision, err := m.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}

		kept := &models.Catalog{Products: make([]models.ProductRecord, 0, len(catalog.Products))}
		for _, p := range catalog.Products {
			if p.MallID != mallID {
				kept.Products = append(kept.Products, p)
			}
		}
		removed = len(catalog.Products) - len(kept.Products)
		if removed == 0 {
			return nil
		}

		if m.backups != nil {
			if _, err := m.backups.Write(mallID, catalog); err != nil {
				return err
			}
		}
		_, err = m.store.Save(ctx, kept, revision)
		return err
	})
	if err != nil {
		return 0, err
	}

	m.logger.WithMall(mallID).Info("Retired %d products", removed)
	return removed, nil
}
