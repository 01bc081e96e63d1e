package scraper

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"mallcatalog/models"
	"mallcatalog/utils"
)

// Crawler walks a mall's seed listings page by page and collects raw records
type Crawler struct {
	fetcher  Fetcher
	delayMs  int
	maxPages int
	logger   *utils.Logger
}

// CrawlResult is everything one mall crawl produced
type CrawlResult struct {
	Records []models.RawRecord
	Pages   int
	RuleSet string // label of the rule-set pinned on the first matching page
}

// Empty reports whether the crawl produced no records at all
func (r *CrawlResult) Empty() bool {
	return len(r.Records) == 0
}

// NewCrawler creates a crawler. delayMs is the polite gap between requests to one mall;
// maxPages is the fallback page cap when neither the rule-set nor the mall sets one.
func NewCrawler(fetcher Fetcher, delayMs, maxPages int, logger *utils.Logger) *Crawler {
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Crawler{
		fetcher:  fetcher,
		delayMs:  delayMs,
		maxPages: maxPages,
		logger:   logger,
	}
}

// Crawl fetches every seed of the mall. A seed whose first page fails is skipped;
// the crawl only fails when no page at all could be fetched.
func (c *Crawler) Crawl(ctx context.Context, mall *models.MallConfig) (*CrawlResult, error) {
	ctx, span := tracer.Start(ctx, "Crawler.Crawl")
	defer span.End()
	span.SetAttributes(attribute.String("mall", mall.ID))

	logger := c.logger.WithMall(mall.ID)
	limiter := utils.NewRateLimiter(c.delayMs)
	tracker := utils.NewURLTracker()
	result := &CrawlResult{}

	var firstErr error
	for _, seed := range mall.Seeds() {
		err := c.crawlSeed(ctx, mall, seed, limiter, tracker, result, logger)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			span.SetStatus(codes.Error, "cancelled")
			return result, err
		}
		logger.Error("Seed %s failed: %v", seed, err)
		if firstErr == nil {
			firstErr = err
		}
	}

	span.SetAttributes(attribute.Int("pages", result.Pages), attribute.Int("records", len(result.Records)))
	if result.Pages == 0 && firstErr != nil {
		span.RecordError(firstErr)
		span.SetStatus(codes.Error, "no page fetched")
		return result, firstErr
	}

	logger.Info("Crawl complete: %d pages, %d raw records", result.Pages, len(result.Records))
	return result, nil
}

func (c *Crawler) pageCap(mall *models.MallConfig, rs *models.RuleSet) int {
	if rs != nil && rs.Pagination != nil && rs.Pagination.MaxPages > 0 {
		return rs.Pagination.MaxPages
	}
	if mall.MaxPages > 0 {
		return mall.MaxPages
	}
	return c.maxPages
}

func (c *Crawler) crawlSeed(
	ctx context.Context,
	mall *models.MallConfig,
	seed string,
	limiter *utils.RateLimiter,
	tracker *utils.URLTracker,
	result *CrawlResult,
	logger *utils.Logger,
) error {
	ruleSets := mall.RuleSets
	pageURL := seed

	for page := 0; ; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		logger.Info("Fetching page %d: %s", page+1, pageURL)
		fetched, err := c.fetcher.Fetch(ctx, Target{
			URL:        pageURL,
			RenderMode: mall.RenderMode,
			Encoding:   mall.Encoding,
		})
		if err != nil {
			if page == 0 {
				return err
			}
			// keep what earlier pages produced
			logger.Warn("Page %d failed, stopping pagination: %v", page+1, err)
			return nil
		}
		result.Pages++

		doc, err := ParseHTML(fetched.HTML)
		if err != nil {
			return fmt.Errorf("parse %s: %w", pageURL, err)
		}

		base := fetched.FinalURL
		if base == "" {
			base = pageURL
		}

		records, rs := Extract(doc, base, ruleSets)
		if rs == nil {
			logger.Warn("No rule-set matched %s", base)
			return nil
		}
		if page == 0 {
			ruleSets = []models.RuleSet{*rs}
			if result.RuleSet == "" {
				result.RuleSet = rs.Label()
			}
			logger.Debug("Rule-set %s pinned for %s", rs.Label(), seed)
		}

		fresh := 0
		for _, rec := range records {
			key := rec.Link
			if key == "" {
				key = rec.Name + "|" + rec.Price
			}
			if !tracker.Add(key) {
				continue
			}
			result.Records = append(result.Records, rec)
			fresh++
		}
		logger.Info("Page %d: %d records, %d new", page+1, len(records), fresh)

		if fresh == 0 {
			return nil
		}
		if page+1 >= c.pageCap(mall, rs) {
			logger.Debug("Page cap reached for %s", seed)
			return nil
		}
		next, ok := NextPageURL(doc, base, rs, page)
		if !ok || next == pageURL || next == base {
			return nil
		}
		pageURL = next
	}
}
