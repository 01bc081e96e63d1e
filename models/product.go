package models

import (
	"slices"
	"time"
)

// RawRecord represents one candidate product scraped from a page before normalization
type RawRecord struct {
	Name          string
	Price         string // e.g. "12,900원"
	OriginalPrice string
	Image         string
	Link          string
	Category      string
	Vendor        string
	SoldOut       bool
	PageURL       string
}

// ProductRecord represents a normalized catalog entry. Identity is (MallID, ID).
type ProductRecord struct {
	ID            string    `json:"id"`
	MallID        string    `json:"mallId"`
	MallName      string    `json:"mallName"`
	MallURL       string    `json:"mallUrl"`
	Region        string    `json:"region,omitempty"`
	Name          string    `json:"name"`
	Vendor        string    `json:"vendor,omitempty"`
	Price         int64     `json:"price"`
	OriginalPrice int64     `json:"originalPrice,omitempty"`
	ImageURL      string    `json:"imageUrl"`
	ProductURL    string    `json:"productUrl"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	Available     bool      `json:"available"`
	Featured      bool      `json:"featured"`
	ClickCount    int64     `json:"clickCount"`
	FirstSeen     time.Time `json:"firstSeen"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// Key is the catalog identity of a record
type Key struct {
	MallID string
	ID     string
}

// Key returns the record identity
func (p *ProductRecord) Key() Key {
	return Key{MallID: p.MallID, ID: p.ID}
}

// ApplyScrape overwrites the scrape-owned fields of p with those of src.
// Operator fields (Featured, ClickCount, FirstSeen) are left untouched.
// It reports whether anything changed.
func (p *ProductRecord) ApplyScrape(src *ProductRecord) bool {
	changed := p.Name != src.Name ||
		p.Vendor != src.Vendor ||
		p.Price != src.Price ||
		p.OriginalPrice != src.OriginalPrice ||
		p.ImageURL != src.ImageURL ||
		p.ProductURL != src.ProductURL ||
		p.Category != src.Category ||
		!slices.Equal(p.Tags, src.Tags) ||
		p.Available != src.Available ||
		p.MallName != src.MallName ||
		p.MallURL != src.MallURL ||
		p.Region != src.Region

	p.Name = src.Name
	p.Vendor = src.Vendor
	p.Price = src.Price
	p.OriginalPrice = src.OriginalPrice
	p.ImageURL = src.ImageURL
	p.ProductURL = src.ProductURL
	p.Category = src.Category
	p.Tags = slices.Clone(src.Tags)
	p.Available = src.Available
	p.MallName = src.MallName
	p.MallURL = src.MallURL
	p.Region = src.Region
	return changed
}

// Catalog is the full ordered collection of products across all malls
type Catalog struct {
	Products []ProductRecord
}

// Clone returns a deep copy of the catalog
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{Products: make([]ProductRecord, len(c.Products))}
	for i, p := range c.Products {
		p.Tags = slices.Clone(p.Tags)
		out.Products[i] = p
	}
	return out
}

// ForMall returns the products belonging to mallID, in catalog order
func (c *Catalog) ForMall(mallID string) []ProductRecord {
	var out []ProductRecord
	for _, p := range c.Products {
		if p.MallID == mallID {
			out = append(out, p)
		}
	}
	return out
}

// Index maps each identity to its position in Products
func (c *Catalog) Index() map[Key]int {
	idx := make(map[Key]int, len(c.Products))
	for i := range c.Products {
		idx[c.Products[i].Key()] = i
	}
	return idx
}
