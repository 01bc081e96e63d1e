package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mallcatalog/models"
	"mallcatalog/utils"
)

// pageFetcher serves canned pages by URL and records the fetch order
type pageFetcher struct {
	pages map[string]string
	fails map[string]error
	order []string
}

func (f *pageFetcher) Fetch(ctx context.Context, target Target) (*Page, error) {
	f.order = append(f.order, target.URL)
	if err, ok := f.fails[target.URL]; ok {
		return nil, &FetchError{URL: target.URL, Cause: err}
	}
	html, ok := f.pages[target.URL]
	if !ok {
		return nil, &FetchError{URL: target.URL, Status: 404, Cause: errors.New("not found")}
	}
	return &Page{HTML: html, FinalURL: target.URL, Status: 200}, nil
}

func listPage(ids ...int) string {
	var b strings.Builder
	b.WriteString(`<ul class="list">`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<li><a href="/goods/%d">상품 %d</a><em>%d원</em></li>`, id, id, 1000*id)
	}
	b.WriteString(`</ul>`)
	return b.String()
}

func pagedMall(maxPages int) *models.MallConfig {
	return &models.MallConfig{
		ID:        "m",
		BaseURL:   "https://m.example.com",
		StartURLs: []string{"https://m.example.com/list"},
		MaxPages:  maxPages,
		RuleSets: []models.RuleSet{{
			Name:              "list",
			ContainerSelector: "ul.list li",
			NameSelectors:     []string{"a"},
			PriceSelectors:    []string{"em"},
			Pagination:        &models.Pagination{Param: "page", Start: 1, Step: 1},
		}},
	}
}

func newTestCrawler(f Fetcher, maxPages int) *Crawler {
	return NewCrawler(f, 0, maxPages, utils.NewDiscardLogger())
}

func TestCrawlFollowsPaginationUntilCap(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{
		"https://m.example.com/list":        listPage(1, 2),
		"https://m.example.com/list?page=2": listPage(3, 4),
		"https://m.example.com/list?page=3": listPage(5),
		"https://m.example.com/list?page=4": listPage(6),
	}}

	res, err := newTestCrawler(f, 10).Crawl(context.Background(), pagedMall(3))
	require.NoError(t, err)
	require.Equal(t, 3, res.Pages)
	require.Len(t, res.Records, 5)
	require.Equal(t, "list", res.RuleSet)
	require.Equal(t, []string{
		"https://m.example.com/list",
		"https://m.example.com/list?page=2",
		"https://m.example.com/list?page=3",
	}, f.order)
}

func TestCrawlStopsWhenPageRepeats(t *testing.T) {
	// sites that clamp out-of-range pages keep serving the last page
	f := &pageFetcher{pages: map[string]string{
		"https://m.example.com/list":        listPage(1, 2),
		"https://m.example.com/list?page=2": listPage(1, 2),
	}}

	res, err := newTestCrawler(f, 10).Crawl(context.Background(), pagedMall(0))
	require.NoError(t, err)
	require.Equal(t, 2, res.Pages)
	require.Len(t, res.Records, 2)
}

func TestCrawlLaterPageFailureKeepsEarlierRecords(t *testing.T) {
	f := &pageFetcher{
		pages: map[string]string{"https://m.example.com/list": listPage(1, 2)},
		fails: map[string]error{"https://m.example.com/list?page=2": errors.New("connection reset")},
	}

	res, err := newTestCrawler(f, 5).Crawl(context.Background(), pagedMall(0))
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
}

func TestCrawlFirstPageFailureIsError(t *testing.T) {
	f := &pageFetcher{fails: map[string]error{"https://m.example.com/list": errors.New("timeout")}}

	res, err := newTestCrawler(f, 5).Crawl(context.Background(), pagedMall(0))
	require.Error(t, err)
	require.True(t, IsFetchError(err))
	require.True(t, res.Empty())
}

func TestCrawlSkipsFailedSeedWhenAnotherSucceeds(t *testing.T) {
	mall := pagedMall(1)
	mall.StartURLs = []string{"https://m.example.com/broken", "https://m.example.com/list"}
	f := &pageFetcher{pages: map[string]string{"https://m.example.com/list": listPage(7)}}

	res, err := newTestCrawler(f, 5).Crawl(context.Background(), mall)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.Equal(t, "상품 7", res.Records[0].Name)
}

func TestCrawlNoRuleSetMatchIsEmpty(t *testing.T) {
	f := &pageFetcher{pages: map[string]string{"https://m.example.com/list": `<p>준비 중</p>`}}

	res, err := newTestCrawler(f, 5).Crawl(context.Background(), pagedMall(0))
	require.NoError(t, err)
	require.True(t, res.Empty())
	require.Equal(t, 1, res.Pages)
	require.Empty(t, res.RuleSet)
}

func TestCrawlPinsRuleSetAcrossPages(t *testing.T) {
	mall := pagedMall(2)
	mall.RuleSets = append([]models.RuleSet{{
		Name:              "cards",
		ContainerSelector: "div.card",
		NameSelectors:     []string{"b"},
		PriceSelectors:    []string{"i"},
		Pagination:        &models.Pagination{Param: "page", Start: 1, Step: 1},
	}}, mall.RuleSets...)

	// page 2 would match the "list" rule-set, but "cards" won on page 1
	f := &pageFetcher{pages: map[string]string{
		"https://m.example.com/list":        `<div class="card"><a href="/goods/1"></a><b>카드 상품</b><i>3000</i></div>`,
		"https://m.example.com/list?page=2": listPage(2, 3),
	}}

	res, err := newTestCrawler(f, 5).Crawl(context.Background(), mall)
	require.NoError(t, err)
	require.Equal(t, "cards", res.RuleSet)
	require.Len(t, res.Records, 1)
	require.Equal(t, 2, res.Pages)
}

func TestCrawlHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &pageFetcher{pages: map[string]string{"https://m.example.com/list": listPage(1)}}
	crawler := NewCrawler(f, 50, 5, utils.NewDiscardLogger())
	// the first Wait never blocks, so cancellation surfaces on the second page
	res, err := crawler.Crawl(ctx, pagedMall(0))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Records, 1)
}
