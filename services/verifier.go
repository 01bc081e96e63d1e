package services

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"mallcatalog/models"
	"mallcatalog/utils"
)

const (
	outlierFactor     = 20
	genericSimilarity = 0.92
)

var placeholderImageMarkers = []string{
	"noimg", "no_image", "noimage", "no-image", "placeholder", "blank.gif", "spacer.gif",
}

// names that mean the extractor picked up a label instead of a product
var genericNames = []string{
	"상품", "상품명", "제품", "제품명", "상품준비중", "준비중", "품절", "상세보기", "자세히보기",
	"바로구매", "장바구니", "테스트", "테스트상품", "샘플", "test", "sample", "product", "noname",
}

// Verifier re-checks stored records against the catalog invariants. It never modifies the catalog.
type Verifier struct {
	priceCeiling int64
	insights     *InsightService
	logger       *utils.Logger
}

// NewVerifier creates a Verifier
func NewVerifier(priceCeiling int64, logger *utils.Logger) *Verifier {
	return &Verifier{priceCeiling: priceCeiling, insights: NewInsightService(logger), logger: logger}
}

// Verify checks every record of mallID. mall may be nil, in which case the domain check uses
// the host of each record's mall URL.
func (v *Verifier) Verify(catalog *models.Catalog, mallID string, mall *models.MallConfig) *models.VerificationReport {
	products := catalog.ForMall(mallID)
	report := &models.VerificationReport{MallID: mallID, Issues: []models.Issue{}}

	median := medianPrice(products)
	seen := make(map[models.Key]struct{}, len(products))

	for i := range products {
		p := &products[i]
		var errs, warns []models.Issue
		fail := func(field, format string, args ...interface{}) {
			errs = append(errs, models.Issue{ProductID: p.ID, Field: field, Severity: models.SeverityError, Message: fmt.Sprintf(format, args...)})
		}
		warn := func(field, format string, args ...interface{}) {
			warns = append(warns, models.Issue{ProductID: p.ID, Field: field, Severity: models.SeverityWarning, Message: fmt.Sprintf(format, args...)})
		}

		if _, dup := seen[p.Key()]; dup {
			fail("id", "duplicate identity %s/%s", p.MallID, p.ID)
		}
		seen[p.Key()] = struct{}{}

		if strings.TrimSpace(p.Name) == "" {
			fail("name", "empty name")
		} else if generic, match := isGenericName(p.Name); generic {
			warn("name", "generic name %q resembles %q", p.Name, match)
		}

		if p.Price <= 0 || (v.priceCeiling > 0 && p.Price > v.priceCeiling) {
			fail("price", "price %d outside 1..%d", p.Price, v.priceCeiling)
		} else if median > 0 && (p.Price > median*outlierFactor || p.Price*outlierFactor < median) {
			warn("price", "price %d is far from the mall median %d", p.Price, median)
		}

		if !v.ownsProductURL(p, mall) {
			fail("productUrl", "%q is outside the mall domain", p.ProductURL)
		}

		if reason := badImage(p.ImageURL); reason != "" {
			fail("imageUrl", "%s", reason)
		}

		if len(errs) > 0 {
			report.InvalidCount++
		} else {
			report.ValidCount++
		}
		report.WarningCount += len(warns)
		report.Issues = append(report.Issues, errs...)
		report.Issues = append(report.Issues, warns...)
	}

	report.Stats = v.insights.Generate(mallID, products)
	v.logger.WithMall(mallID).Info("Verified %d products: %d valid, %d invalid, %d warnings",
		len(products), report.ValidCount, report.InvalidCount, report.WarningCount)
	return report
}

func (v *Verifier) ownsProductURL(p *models.ProductRecord, mall *models.MallConfig) bool {
	u, err := url.Parse(p.ProductURL)
	if err != nil || u.Hostname() == "" {
		return false
	}
	if mall != nil {
		return mall.OwnsHost(u.Hostname())
	}
	fallback := models.MallConfig{BaseURL: p.MallURL}
	return fallback.OwnsHost(u.Hostname())
}

func badImage(image string) string {
	image = strings.TrimSpace(image)
	if image == "" {
		return "missing image"
	}
	lower := strings.ToLower(image)
	if strings.HasPrefix(lower, "data:") {
		return "inline data image"
	}
	for _, marker := range placeholderImageMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Sprintf("placeholder image %q", image)
		}
	}
	return ""
}

func squash(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// isGenericName matches name against the denylist exactly after squashing whitespace and
// case, then by Jaro-Winkler similarity
func isGenericName(name string) (bool, string) {
	n := squash(name)
	for _, g := range genericNames {
		if n == g {
			return true, g
		}
	}
	for _, g := range genericNames {
		if matchr.JaroWinkler(n, g, false) >= genericSimilarity {
			return true, g
		}
	}
	return false, ""
}

func medianPrice(products []models.ProductRecord) int64 {
	prices := make([]int64, 0, len(products))
	for _, p := range products {
		if p.Price > 0 {
			prices = append(prices, p.Price)
		}
	}
	if len(prices) == 0 {
		return 0
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	mid := len(prices) / 2
	if len(prices)%2 == 0 {
		return (prices[mid-1] + prices[mid]) / 2
	}
	return prices[mid]
}
