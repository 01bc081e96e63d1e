package services

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"mallcatalog/models"
	"mallcatalog/scraper"
	"mallcatalog/utils"
)

// ErrRejected matches every *RejectError
var ErrRejected = errors.New("record rejected")

// Rejection reasons
const (
	ReasonInvalidPrice    = "invalid_price"
	ReasonPriceOutOfRange = "price_out_of_range"
	ReasonDomainMismatch  = "domain_mismatch"
	ReasonNameTooShort    = "name_too_short"
	ReasonMissingLink     = "missing_link"
)

const minNameRunes = 2

var (
	nonDigit     = regexp.MustCompile(`\D`)
	whitespace   = regexp.MustCompile(`\s+`)
	vendorPrefix = regexp.MustCompile(`^\[([^\]]+)\]\s*(.*)$`)
)

// RejectError reports why a raw record could not become a catalog record
type RejectError struct {
	Reason string
	Detail string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("rejected (%s): %s", e.Reason, e.Detail)
}

func (e *RejectError) Is(target error) bool {
	return target == ErrRejected
}

func reject(reason, format string, args ...interface{}) error {
	return &RejectError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Normalizer converts raw scraped records into canonical catalog records
type Normalizer struct {
	priceCeiling int64
	logger       *utils.Logger
}

// NewNormalizer creates a Normalizer rejecting prices above priceCeiling
func NewNormalizer(priceCeiling int64, logger *utils.Logger) *Normalizer {
	return &Normalizer{priceCeiling: priceCeiling, logger: logger}
}

// Normalize validates one raw record and builds its catalog form
func (n *Normalizer) Normalize(raw *models.RawRecord, mall *models.MallConfig) (*models.ProductRecord, error) {
	name, vendor := splitVendor(collapse(raw.Name))
	if v := collapse(raw.Vendor); v != "" {
		vendor = v
	}
	if utf8.RuneCountInString(name) < minNameRunes {
		return nil, reject(ReasonNameTooShort, "name %q", name)
	}

	price, err := n.ParsePrice(raw.Price)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(raw.Link) == "" {
		return nil, reject(ReasonMissingLink, "no link for %q", name)
	}
	base := raw.PageURL
	if base == "" {
		base = mall.BaseURL
	}
	productURL, err := resolveHTTP(base, raw.Link)
	if err != nil {
		return nil, reject(ReasonDomainMismatch, "unusable link %q: %v", raw.Link, err)
	}
	if !mall.OwnsHost(productURL.Hostname()) {
		return nil, reject(ReasonDomainMismatch, "host %s outside %v", productURL.Hostname(), mall.HostDomains())
	}

	imageURL := ""
	if strings.TrimSpace(raw.Image) != "" {
		if u, err := resolveHTTP(base, raw.Image); err == nil {
			imageURL = u.String()
		} else {
			n.logger.Debug("Dropping image %q of %q: %v", raw.Image, name, err)
		}
	}

	var originalPrice int64
	if raw.OriginalPrice != "" {
		if op, err := n.ParsePrice(raw.OriginalPrice); err == nil && op > price {
			originalPrice = op
		}
	}

	link := productURL.String()
	return &models.ProductRecord{
		ID:            ProductID(link),
		MallID:        mall.ID,
		MallName:      mall.Name,
		MallURL:       mall.BaseURL,
		Region:        mall.Region,
		Name:          name,
		Vendor:        vendor,
		Price:         price,
		OriginalPrice: originalPrice,
		ImageURL:      imageURL,
		ProductURL:    link,
		Category:      Categorize(name, raw.Category, mall.CategoryMap),
		Tags:          Tags(name, mall.Region),
		Available:     !raw.SoldOut,
	}, nil
}

// NormalizeAll normalizes a batch, returning the accepted records and rejection counts by reason
func (n *Normalizer) NormalizeAll(raws []models.RawRecord, mall *models.MallConfig) ([]models.ProductRecord, map[string]int) {
	records := make([]models.ProductRecord, 0, len(raws))
	rejections := make(map[string]int)

	for i := range raws {
		rec, err := n.Normalize(&raws[i], mall)
		if err != nil {
			var re *RejectError
			if errors.As(err, &re) {
				rejections[re.Reason]++
			}
			n.logger.Debug("Skipping %q: %v", raws[i].Name, err)
			continue
		}
		records = append(records, *rec)
	}

	n.logger.Info("Normalized %d records from %d raw records (%d rejected)", len(records), len(raws), len(raws)-len(records))
	return records, rejections
}

// ParsePrice keeps only the digits of a price text like "12,900원" and checks the bounds
func (n *Normalizer) ParsePrice(text string) (int64, error) {
	digits := nonDigit.ReplaceAllString(text, "")
	if digits == "" {
		return 0, reject(ReasonInvalidPrice, "no digits in %q", text)
	}
	price, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, reject(ReasonPriceOutOfRange, "%q does not fit: %v", text, err)
	}
	if price <= 0 {
		return 0, reject(ReasonInvalidPrice, "zero price in %q", text)
	}
	if n.priceCeiling > 0 && price > n.priceCeiling {
		return 0, reject(ReasonPriceOutOfRange, "%d above %d", price, n.priceCeiling)
	}
	return price, nil
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// splitVendor moves a leading "[vendor]" segment out of the name
func splitVendor(name string) (string, string) {
	m := vendorPrefix.FindStringSubmatch(name)
	if m == nil {
		return name, ""
	}
	return strings.TrimSpace(m[2]), strings.TrimSpace(m[1])
}

func resolveHTTP(base, ref string) (*url.URL, error) {
	abs, err := scraper.ResolveURL(base, ref)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(abs)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("no host")
	}
	return u, nil
}
