package services

import (
	"sort"

	"mallcatalog/models"
	"mallcatalog/utils"
)

const maxSamples = 5

// InsightService computes analytics over a mall's catalog records
type InsightService struct {
	logger *utils.Logger
}

// NewInsightService creates a new InsightService
func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes the price and category statistics of a mall's products
func (s *InsightService) Generate(mallID string, products []models.ProductRecord) *models.Stats {
	stats := ComputeStats(products)
	if stats.Count == 0 {
		s.logger.WithMall(mallID).Warn("No products to generate insights from")
	}
	return stats
}

// ComputeStats computes count, price bounds, average, category histogram, price buckets and
// the most expensive samples. Non-positive prices are counted but left out of price figures.
func ComputeStats(products []models.ProductRecord) *models.Stats {
	stats := &models.Stats{
		Categories:  make(map[string]int),
		PriceRanges: make(map[string]int),
	}
	for _, label := range models.PriceRangeLabels {
		stats.PriceRanges[label] = 0
	}
	if len(products) == 0 {
		return stats
	}

	var total int64
	priced := 0
	for _, p := range products {
		stats.Count++
		if p.Category != "" {
			stats.Categories[p.Category]++
		}
		if p.Price <= 0 {
			continue
		}
		priced++
		total += p.Price
		if stats.MinPrice == 0 || p.Price < stats.MinPrice {
			stats.MinPrice = p.Price
		}
		if p.Price > stats.MaxPrice {
			stats.MaxPrice = p.Price
		}
		stats.PriceRanges[PriceRange(p.Price)]++
	}
	if priced > 0 {
		stats.AvgPrice = float64(total) / float64(priced)
	}

	byPrice := make([]models.ProductRecord, len(products))
	copy(byPrice, products)
	sort.SliceStable(byPrice, func(i, j int) bool {
		return byPrice[i].Price > byPrice[j].Price
	})
	top := maxSamples
	if len(byPrice) < top {
		top = len(byPrice)
	}
	for _, p := range byPrice[:top] {
		stats.Samples = append(stats.Samples, models.Sample{Name: p.Name, Price: p.Price, Category: p.Category})
	}

	return stats
}

// PriceRange returns the bucket label of a price in won
func PriceRange(price int64) string {
	switch {
	case price < 5000:
		return models.PriceRangeLabels[0]
	case price < 10000:
		return models.PriceRangeLabels[1]
	case price < 20000:
		return models.PriceRangeLabels[2]
	case price < 50000:
		return models.PriceRangeLabels[3]
	default:
		return models.PriceRangeLabels[4]
	}
}
