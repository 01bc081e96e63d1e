package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"mallcatalog/config"
	"mallcatalog/models"
	"mallcatalog/scraper"
	"mallcatalog/services"
	"mallcatalog/storage"
	"mallcatalog/utils"
)

// ReasonTimeout marks runs cut off by the per-run deadline
const ReasonTimeout = "Timeout"

// Runner drives malls through crawl, normalize, merge and verify
type Runner struct {
	crawler     *scraper.Crawler
	normalizer  *services.Normalizer
	merger      *services.Merger
	verifier    *services.Verifier
	raw         storage.RawStorage
	maxRetries  int
	runTimeout  time.Duration
	concurrency int
	logger      *utils.Logger
}

// NewRunner wires a Runner from the application config. raw may be nil to skip the raw dump.
func NewRunner(cfg *config.Config, fetcher scraper.Fetcher, merger *services.Merger, raw storage.RawStorage, logger *utils.Logger) *Runner {
	concurrency := cfg.MaxConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		crawler:     scraper.NewCrawler(fetcher, cfg.RateLimitDelay, cfg.MaxPages, logger),
		normalizer:  services.NewNormalizer(cfg.PriceCeiling, logger),
		merger:      merger,
		verifier:    services.NewVerifier(cfg.PriceCeiling, logger),
		raw:         raw,
		maxRetries:  cfg.MaxRetries,
		runTimeout:  time.Duration(cfg.RunTimeoutSec) * time.Second,
		concurrency: concurrency,
		logger:      logger,
	}
}

// SetConcurrency overrides the number of malls run at once
func (r *Runner) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

func failed(result *models.RunResult, reason string, err error) *models.RunResult {
	result.Status = models.RunFailed
	result.Reason = reason
	result.Err = err
	result.Error = err.Error()
	return result
}

// Run scrapes one mall end to end. Failures are reported in the result, never panicked or
// returned, so one mall cannot stop a batch.
func (r *Runner) Run(ctx context.Context, mall *models.MallConfig) *models.RunResult {
	logger := r.logger.WithMall(mall.ID)
	result := &models.RunResult{MallID: mall.ID}

	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	start := time.Now()
	logger.Info("Starting %s (%s, %d seed URLs)", mall.Name, mall.RenderMode, len(mall.Seeds()))

	var crawl *scraper.CrawlResult
	err := utils.RetryWithBackoff(ctx, r.maxRetries, func() error {
		res, err := r.crawler.Crawl(ctx, mall)
		crawl = res
		return err
	}, scraper.IsFetchError, logger)
	if crawl != nil {
		result.Pages = crawl.Pages
		result.RuleSet = crawl.RuleSet
		result.Raw = len(crawl.Records)
	}
	if err != nil {
		reason := models.ReasonFetchError
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		logger.Error("Run failed: %v", err)
		return failed(result, reason, err)
	}

	if r.raw != nil && !crawl.Empty() {
		if _, err := r.raw.SaveRaw(mall.ID, crawl.Records); err != nil {
			logger.Warn("Raw dump failed: %v", err)
		}
	}

	var records []models.ProductRecord
	rejections := map[string]int{}
	if crawl.Empty() {
		result.Status = models.RunEmpty
		result.Reason = models.ReasonExtractionEmpty
		logger.Warn("No products extracted")
	} else {
		result.Status = models.RunOK
		records, rejections = r.normalizer.NormalizeAll(crawl.Records, mall)
	}

	report, err := r.merger.Merge(ctx, mall.ID, records, rejections)
	if err != nil {
		logger.Error("Merge failed: %v", err)
		return failed(result, models.ReasonStoreError, err)
	}
	result.Merge = report

	catalog, err := r.merger.Catalog(ctx)
	if err != nil {
		logger.Warn("Verification skipped: %v", err)
	} else {
		result.Verify = r.verifier.Verify(catalog, mall.ID, mall)
	}

	logger.Info("Finished in %s: status %s", time.Since(start).Round(time.Millisecond), result.Status)
	return result
}

// RunBatch runs the malls with bounded concurrency and returns their results in input order.
// Every mall runs to completion regardless of the others.
func (r *Runner) RunBatch(ctx context.Context, malls []*models.MallConfig) []*models.RunResult {
	results := make([]*models.RunResult, len(malls))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, mall := range malls {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					results[i] = failed(&models.RunResult{MallID: mall.ID}, "Panic", fmt.Errorf("panic: %v", p))
				}
			}()
			results[i] = r.Run(ctx, mall)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Failures counts the runs that ended in an unrecoverable error
func Failures(results []*models.RunResult) int {
	n := 0
	for _, res := range results {
		if res != nil && res.Failed() {
			n++
		}
	}
	return n
}
