package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"mallcatalog/models"
	"mallcatalog/utils"
)

func testMall() *models.MallConfig {
	return &models.MallConfig{
		ID:      "example",
		Name:    "예제몰",
		BaseURL: "https://example.com",
		Region:  "강원도 원주시",
		CategoryMap: map[string]string{
			"쌀/잡곡":  "농산물",
			"건강식품": "건강식품",
		},
	}
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(10_000_000, utils.NewDiscardLogger())
}

func rejectionReason(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRejected)
	var re *RejectError
	require.True(t, errors.As(err, &re))
	return re.Reason
}

func TestNormalizeBuildsCanonicalRecord(t *testing.T) {
	raw := &models.RawRecord{
		Name:          " [청정농원]  유기농   사과 5kg ",
		Price:         "29,900원",
		OriginalPrice: "35,000원",
		Image:         "/data/goods/1.jpg",
		Link:          "/goods/view?no=101",
		PageURL:       "https://example.com/goods/catalog?code=1",
	}

	rec, err := newTestNormalizer().Normalize(raw, testMall())
	require.NoError(t, err)
	require.Equal(t, &models.ProductRecord{
		ID:            "101",
		MallID:        "example",
		MallName:      "예제몰",
		MallURL:       "https://example.com",
		Region:        "강원도 원주시",
		Name:          "유기농 사과 5kg",
		Vendor:        "청정농원",
		Price:         29900,
		OriginalPrice: 35000,
		ImageURL:      "https://example.com/data/goods/1.jpg",
		ProductURL:    "https://example.com/goods/view?no=101",
		Category:      "농산물",
		Tags:          []string{"유기농", "원주시"},
		Available:     true,
	}, rec)
}

func TestNormalizeRejectsPriceInquiry(t *testing.T) {
	_, err := newTestNormalizer().Normalize(&models.RawRecord{
		Name: "한우 선물세트", Price: "가격문의", Link: "/goods/1",
	}, testMall())
	require.Equal(t, ReasonInvalidPrice, rejectionReason(t, err))
}

func TestParsePriceBounds(t *testing.T) {
	n := newTestNormalizer()

	cases := map[string]string{
		"":                      ReasonInvalidPrice,
		"0원":                    ReasonInvalidPrice,
		"품절":                    ReasonInvalidPrice,
		"10,000,001원":           ReasonPriceOutOfRange,
		"99999999999999999999": ReasonPriceOutOfRange,
	}
	for in, reason := range cases {
		_, err := n.ParsePrice(in)
		require.Equal(t, reason, rejectionReason(t, err), in)
	}

	price, err := n.ParsePrice("₩ 10,000,000")
	require.NoError(t, err)
	require.Equal(t, int64(10_000_000), price)

	price, err = n.ParsePrice("1원")
	require.NoError(t, err)
	require.Equal(t, int64(1), price)
}

func TestNormalizeResolvesRelativeURLs(t *testing.T) {
	rec, err := newTestNormalizer().Normalize(&models.RawRecord{
		Name: "곤드레 나물밥", Price: "8,500", Image: "//example.com/img/a.png", Link: "view.php?it_id=77",
	}, testMall())
	require.NoError(t, err)
	// without a page URL the base URL anchors relative references
	require.Equal(t, "https://example.com/view.php?it_id=77", rec.ProductURL)
	require.Equal(t, "https://example.com/img/a.png", rec.ImageURL)
	require.Equal(t, "77", rec.ID)
}

func TestNormalizeDomainContainment(t *testing.T) {
	n := newTestNormalizer()
	mall := testMall()

	_, err := n.Normalize(&models.RawRecord{Name: "제휴 상품", Price: "1000", Link: "https://other-mall.kr/goods/1"}, mall)
	require.Equal(t, ReasonDomainMismatch, rejectionReason(t, err))

	_, err = n.Normalize(&models.RawRecord{Name: "자바스크립트 링크", Price: "1000", Link: "javascript:go(1)"}, mall)
	require.Equal(t, ReasonDomainMismatch, rejectionReason(t, err))

	rec, err := n.Normalize(&models.RawRecord{Name: "모바일 상품", Price: "1000", Link: "https://m.example.com/goods/5"}, mall)
	require.NoError(t, err)
	require.Equal(t, "5", rec.ID)
}

func TestNormalizeNameAndLinkRules(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.Normalize(&models.RawRecord{Name: "[특가] 배", Price: "1000", Link: "/goods/1"}, testMall())
	require.Equal(t, ReasonNameTooShort, rejectionReason(t, err))

	_, err = n.Normalize(&models.RawRecord{Name: "들기름 350ml", Price: "1000"}, testMall())
	require.Equal(t, ReasonMissingLink, rejectionReason(t, err))

	rec, err := n.Normalize(&models.RawRecord{
		Name: "[특가] 들기름 350ml", Vendor: "참고소", Price: "1000", OriginalPrice: "900", Link: "/goods/2", SoldOut: true,
	}, testMall())
	require.NoError(t, err)
	require.Equal(t, "들기름 350ml", rec.Name)
	require.Equal(t, "참고소", rec.Vendor)
	require.Zero(t, rec.OriginalPrice)
	require.False(t, rec.Available)
}

func TestNormalizeAllCountsRejections(t *testing.T) {
	raws := []models.RawRecord{
		{Name: "현미 4kg", Price: "21,000", Link: "/goods/1"},
		{Name: "한우 세트", Price: "가격문의", Link: "/goods/2"},
		{Name: "꿀 1kg", Price: "없음", Link: "/goods/3"},
		{Name: "외부 상품", Price: "5000", Link: "https://elsewhere.com/p/1"},
	}
	records, rejections := newTestNormalizer().NormalizeAll(raws, testMall())
	require.Len(t, records, 1)
	require.Equal(t, map[string]int{ReasonInvalidPrice: 2, ReasonDomainMismatch: 1}, rejections)
}

func TestProductIDIsStable(t *testing.T) {
	require.Equal(t, "123", ProductID("https://a.kr/goods/123"))
	require.Equal(t, "123", ProductID("https://a.kr/product/사과/123/category/1/"))
	require.Equal(t, "G001", ProductID("https://a.kr/shop/view.php?goodsNo=G001&cate=3"))
	require.Equal(t, "55", ProductID("https://a.kr/shop/shopdetail.html?branduid=55"))

	a := ProductID("https://a.kr/detail?sku=x&utm_source=naver&color=red#reviews")
	b := ProductID("https://A.kr/detail?color=red&sku=x")
	require.Equal(t, a, b)
	require.Len(t, a, 36)
	require.NotEqual(t, a, ProductID("https://a.kr/detail?color=blue&sku=x"))
}

func TestCategorize(t *testing.T) {
	mapping := testMall().CategoryMap
	require.Equal(t, "농산물", Categorize("찰흑미", "쌀/잡곡", mapping))
	require.Equal(t, "건강식품", Categorize("도라지청", "선물용 건강식품", mapping))
	require.Equal(t, "축산물", Categorize("횡성 한우 등심 500g", "", nil))
	require.Equal(t, "수산물", Categorize("완도 활전복 1kg", "", nil))
	require.Equal(t, "가공식품", Categorize("전통 수제 만두", "", nil))
	require.Equal(t, models.DefaultCategory, Categorize("원목 의자", "", nil))
}

func TestCategorizeIgnoresMappingsOutsideVocabulary(t *testing.T) {
	mall := testMall()
	mall.CategoryMap = map[string]string{"과일": "Fruit & Veg", "수제": "Handmade"}

	require.Equal(t, "농산물", Categorize("제주 한라봉 3kg", "과일", mall.CategoryMap))
	require.Equal(t, models.DefaultCategory, Categorize("원목 의자", "수제 가구", mall.CategoryMap))

	product, err := newTestNormalizer().Normalize(&models.RawRecord{
		Name:     "제주 한라봉 3kg",
		Price:    "29,000원",
		Link:     "/goods/view?no=7",
		Category: "과일",
	}, mall)
	require.NoError(t, err)
	require.True(t, models.IsCategory(product.Category), product.Category)
	require.Equal(t, "농산물", product.Category)
}

func TestTags(t *testing.T) {
	require.Equal(t, []string{"무농약", "선물세트", "원주시"}, Tags("무농약 배 선물세트", "강원도 원주시"))
	require.Equal(t, []string{}, Tags("원목 의자", ""))
}
