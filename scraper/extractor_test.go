package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mallcatalog/models"
)

const listingHTML = `<html><body>
<ul class="goods_list">
  <li class="gl_item">
    <a class="thumb" href="/goods/view?no=101"><img src="/img/blank.gif" data-src="/data/goods/1.jpg"></a>
    <span class="gli_name">  [청정농원]
       유기농 사과 5kg </span>
    <span class="gli_price"><span class="num">29,900</span>원</span>
    <span class="gli_consumer"><span class="num">35,000</span></span>
  </li>
  <li class="gl_item">
    <a class="thumb" href="javascript:void(0)"></a>
    <a class="more" href="/goods/view?no=102"></a>
    <span class="goods_name">흑돼지 목살 500g</span>
    <span class="gli_price"><span class="num">18,000</span>원</span>
    <div class="gli_image" style="background-image: url('/data/goods/2.jpg')"></div>
    <span class="soldout">품절</span>
  </li>
  <li class="gl_item">
    <span class="gli_name">가격 없는 상품</span>
  </li>
</ul>
<div class="paging"><a class="next" href="?page=2">다음</a></div>
</body></html>`

func firstmallRules() []models.RuleSet {
	return []models.RuleSet{
		{
			Name:              "missing",
			ContainerSelector: ".does-not-exist li",
			NameSelectors:     []string{"b"},
			PriceSelectors:    []string{"i"},
		},
		{
			Name:                   "firstmall",
			ContainerSelector:      "ul.goods_list li.gl_item",
			NameSelectors:          []string{".gli_name", ".goods_name"},
			PriceSelectors:         []string{".gli_price .num"},
			OriginalPriceSelectors: []string{".gli_consumer .num"},
			ImageSelectors:         []string{"a.thumb img", ".gli_image"},
			LinkSelectors:          []string{"a.thumb", "a.more"},
			SoldOutSelectors:       []string{".soldout"},
			Pagination:             &models.Pagination{NextSelector: ".paging a.next"},
		},
		{
			Name:              "fallback",
			ContainerSelector: "li",
			NameSelectors:     []string{"span"},
			PriceSelectors:    []string{"span"},
		},
	}
}

func TestExtractFirstMatchingRuleSetWins(t *testing.T) {
	doc, err := ParseHTML(listingHTML)
	require.NoError(t, err)

	records, rs := Extract(doc, "https://wonju-mall.co.kr/goods/catalog", firstmallRules())
	require.NotNil(t, rs)
	require.Equal(t, "firstmall", rs.Label())

	// the container without a price is skipped
	require.Len(t, records, 2)

	require.Equal(t, "[청정농원] 유기농 사과 5kg", records[0].Name)
	require.Equal(t, "29,900", records[0].Price)
	require.Equal(t, "35,000", records[0].OriginalPrice)
	require.Equal(t, "/data/goods/1.jpg", records[0].Image)
	require.Equal(t, "/goods/view?no=101", records[0].Link)
	require.False(t, records[0].SoldOut)
	require.Equal(t, "https://wonju-mall.co.kr/goods/catalog", records[0].PageURL)

	// name falls back to the second selector, link skips the javascript: anchor,
	// image comes from an inline background
	require.Equal(t, "흑돼지 목살 500g", records[1].Name)
	require.Equal(t, "/goods/view?no=102", records[1].Link)
	require.Equal(t, "/data/goods/2.jpg", records[1].Image)
	require.True(t, records[1].SoldOut)
}

func TestExtractNoRuleSetMatches(t *testing.T) {
	doc, err := ParseHTML(`<html><body><p>점검 중입니다</p></body></html>`)
	require.NoError(t, err)

	records, rs := Extract(doc, "https://m.example.com", firstmallRules()[:1])
	require.Nil(t, rs)
	require.Empty(t, records)
}

func TestAttributeSelectors(t *testing.T) {
	doc, err := ParseHTML(`<ul><li data-name="메밀 국수" data-price="7500"><a href="/p/9" title="상세"></a></li></ul>`)
	require.NoError(t, err)

	rules := []models.RuleSet{{
		ContainerSelector: "li",
		NameSelectors:     []string{"@data-name"},
		PriceSelectors:    []string{"@data-price"},
		LinkSelectors:     []string{"a@href"},
	}}
	records, rs := Extract(doc, "https://m.example.com/list", rules)
	require.NotNil(t, rs)
	require.Equal(t, []models.RawRecord{{
		Name:    "메밀 국수",
		Price:   "7500",
		Link:    "/p/9",
		PageURL: "https://m.example.com/list",
	}}, records)
}

func TestLinkFallsBackToContainerAnchor(t *testing.T) {
	doc, err := ParseHTML(`<div class="grid"><a class="card" href="/item/3"><b>감귤</b><i>12000</i></a></div>`)
	require.NoError(t, err)

	records, _ := Extract(doc, "https://m.example.com", []models.RuleSet{{
		ContainerSelector: "a.card",
		NameSelectors:     []string{"b"},
		PriceSelectors:    []string{"i"},
	}})
	require.Len(t, records, 1)
	require.Equal(t, "/item/3", records[0].Link)
}

func TestSplitSelector(t *testing.T) {
	cases := map[string][2]string{
		"img@data-src":          {"img", "data-src"},
		"@href":                 {"", "href"},
		".price strong":         {".price strong", ""},
		"a[href*='@mail']":      {"a[href*='@mail']", ""},
		" li[rel='판매가'] span ": {"li[rel='판매가'] span", ""},
	}
	for in, want := range cases {
		css, attr := splitSelector(in)
		require.Equal(t, want[0], css, in)
		require.Equal(t, want[1], attr, in)
	}
}

func TestNextPageURL(t *testing.T) {
	doc, err := ParseHTML(listingHTML)
	require.NoError(t, err)

	linkRules := firstmallRules()[1]
	next, ok := NextPageURL(doc, "https://wonju-mall.co.kr/goods/catalog?code=1", &linkRules, 0)
	require.True(t, ok)
	require.Equal(t, "https://wonju-mall.co.kr/goods/catalog?page=2", next)

	offset := models.RuleSet{Pagination: &models.Pagination{Param: "start", Start: 0, Step: 12}}
	next, ok = NextPageURL(doc, "https://wemall.kr/product/product.html?category=001013", &offset, 1)
	require.True(t, ok)
	require.Equal(t, "https://wemall.kr/product/product.html?category=001013&start=24", next)

	paged := models.RuleSet{Pagination: &models.Pagination{Param: "page", Start: 1, Step: 1}}
	next, ok = NextPageURL(doc, "https://m.example.com/list?page=1", &paged, 0)
	require.True(t, ok)
	require.Equal(t, "https://m.example.com/list?page=2", next)

	bare := models.RuleSet{Pagination: &models.Pagination{Param: "page"}}
	next, ok = NextPageURL(doc, "https://m.example.com/list", &bare, 1)
	require.True(t, ok)
	require.Equal(t, "https://m.example.com/list?page=3", next)

	_, ok = NextPageURL(doc, "https://m.example.com", &models.RuleSet{}, 0)
	require.False(t, ok)

	empty, err := ParseHTML(`<div class="paging"><a class="next" href="#">다음</a></div>`)
	require.NoError(t, err)
	_, ok = NextPageURL(empty, "https://m.example.com", &linkRules, 0)
	require.False(t, ok)
}

func TestResolveURL(t *testing.T) {
	got, err := ResolveURL("https://example.com/shop/list.php?page=1", "/data/goods/1.jpg")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/data/goods/1.jpg", got)

	got, err = ResolveURL("https://example.com/shop/list.php", "//cdn.example.com/a.png")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/a.png", got)

	got, err = ResolveURL("https://example.com/shop/list.php", "view.php?id=3")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/shop/view.php?id=3", got)
}
