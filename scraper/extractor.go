package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mallcatalog/models"
)

// lazy-loading attributes hold the real image while src is often a spacer, so they go first
var imageAttrs = []string{"data-original", "data-src", "data-lazy-src", "data-lazy", "src"}

var (
	backgroundURL = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)
	attrSuffix    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_:.-]*$`)
	spaces        = regexp.MustCompile(`\s+`)
)

// ParseHTML builds a queryable document from page markup
func ParseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// Extract applies the first rule-set whose container selector matches anything on the page.
// It returns the raw records and the winning rule-set, or nil when no rule-set matched.
// Containers missing a name or price are skipped.
func Extract(doc *goquery.Document, pageURL string, ruleSets []models.RuleSet) ([]models.RawRecord, *models.RuleSet) {
	for i := range ruleSets {
		rs := &ruleSets[i]
		containers := doc.Find(rs.ContainerSelector)
		if containers.Length() == 0 {
			continue
		}

		records := make([]models.RawRecord, 0, containers.Length())
		containers.Each(func(_ int, c *goquery.Selection) {
			rec := extractRecord(c, rs, pageURL)
			if rec.Name == "" || rec.Price == "" {
				return
			}
			records = append(records, rec)
		})
		return records, rs
	}
	return nil, nil
}

func extractRecord(c *goquery.Selection, rs *models.RuleSet, pageURL string) models.RawRecord {
	return models.RawRecord{
		Name:          firstText(c, rs.NameSelectors),
		Price:         firstText(c, rs.PriceSelectors),
		OriginalPrice: firstText(c, rs.OriginalPriceSelectors),
		Image:         firstImage(c, rs.ImageSelectors),
		Link:          firstLink(c, rs.LinkSelectors),
		Category:      firstText(c, rs.CategorySelectors),
		Vendor:        firstText(c, rs.VendorSelectors),
		SoldOut:       anyMatch(c, rs.SoldOutSelectors),
		PageURL:       pageURL,
	}
}

// splitSelector separates an optional trailing "@attr" from a CSS selector.
// "img@data-src" reads the attribute, "@href" reads it from the container itself.
func splitSelector(sel string) (css, attr string) {
	sel = strings.TrimSpace(sel)
	i := strings.LastIndex(sel, "@")
	if i < 0 || !attrSuffix.MatchString(sel[i+1:]) {
		return sel, ""
	}
	return strings.TrimSpace(sel[:i]), sel[i+1:]
}

func scope(c *goquery.Selection, css string) *goquery.Selection {
	if css == "" {
		return c
	}
	return c.Find(css)
}

func cleanText(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// firstText returns the first non-empty value produced by the selectors, in order
func firstText(c *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		css, attr := splitSelector(sel)
		var found string
		scope(c, css).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if attr != "" {
				found = strings.TrimSpace(s.AttrOr(attr, ""))
			} else {
				found = cleanText(s.Text())
			}
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func imageOf(s *goquery.Selection) string {
	for _, attr := range imageAttrs {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	if m := backgroundURL.FindStringSubmatch(s.AttrOr("style", "")); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// firstImage reads the image address from lazy-loading attributes, src, or an inline
// background-image, whichever the first matching element carries
func firstImage(c *goquery.Selection, selectors []string) string {
	if len(selectors) == 0 {
		selectors = []string{"img"}
	}
	for _, sel := range selectors {
		css, attr := splitSelector(sel)
		if attr != "" {
			if v := firstText(c, []string{sel}); v != "" {
				return v
			}
			continue
		}
		var found string
		scope(c, css).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = imageOf(s)
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func usableHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(href), "javascript:")
}

// firstLink reads href from the link selectors; with none configured it falls back to the
// container itself when it is an anchor, then to its first anchor
func firstLink(c *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		css, attr := splitSelector(sel)
		if attr == "" {
			attr = "href"
		}
		var found string
		scope(c, css).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v := s.AttrOr(attr, ""); usableHref(v) {
				found = strings.TrimSpace(v)
			}
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	if len(selectors) > 0 {
		return ""
	}

	if goquery.NodeName(c) == "a" {
		if v := c.AttrOr("href", ""); usableHref(v) {
			return strings.TrimSpace(v)
		}
	}
	var found string
	c.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v := s.AttrOr("href", ""); usableHref(v) {
			found = strings.TrimSpace(v)
		}
		return found == ""
	})
	return found
}

func anyMatch(c *goquery.Selection, selectors []string) bool {
	for _, sel := range selectors {
		css, _ := splitSelector(sel)
		if css != "" && c.Find(css).Length() > 0 {
			return true
		}
	}
	return false
}

// NextPageURL computes the address of the page after pageIndex (0 for the seed page).
// It reports false when the rule-set has no pagination or the page offers no next link.
func NextPageURL(doc *goquery.Document, pageURL string, rs *models.RuleSet, pageIndex int) (string, bool) {
	if rs == nil || rs.Pagination == nil {
		return "", false
	}
	p := rs.Pagination

	if p.NextSelector != "" {
		href := ""
		doc.Find(p.NextSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v := s.AttrOr("href", ""); usableHref(v) {
				href = strings.TrimSpace(v)
			}
			return href == ""
		})
		if href == "" {
			return "", false
		}
		next, err := ResolveURL(pageURL, href)
		if err != nil {
			return "", false
		}
		return next, true
	}

	if p.Param == "" {
		return "", false
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	// without a step the param is a plain 1-based page number
	start, step := p.Start, p.Step
	if step == 0 {
		step = 1
		if start == 0 {
			start = 1
		}
	}
	q := u.Query()
	q.Set(p.Param, strconv.Itoa(start+step*(pageIndex+1)))
	u.RawQuery = q.Encode()
	return u.String(), true
}

// ResolveURL resolves ref against base. Protocol-relative and absolute refs keep their host.
func ResolveURL(base, ref string) (string, error) {
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", err
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
