package models

import (
	"net/url"
	"strings"
)

// RenderMode tells the fetcher how a mall's listing pages must be retrieved
type RenderMode string

const (
	RenderStatic  RenderMode = "static"
	RenderBrowser RenderMode = "rendered"
)

// Pagination describes how to reach the next listing page of a rule-set.
// Either Param (query parameter paging) or NextSelector (link paging) is set.
type Pagination struct {
	Param        string `json:"param,omitempty"`
	Start        int    `json:"start,omitempty"`
	Step         int    `json:"step,omitempty"`
	NextSelector string `json:"nextSelector,omitempty"`
	MaxPages     int    `json:"maxPages,omitempty"`
}

// RuleSet is one candidate set of structural patterns for locating products on a page
type RuleSet struct {
	Name                   string      `json:"name,omitempty"`
	ContainerSelector      string      `json:"containerSelector"`
	NameSelectors          []string    `json:"nameSelectors"`
	PriceSelectors         []string    `json:"priceSelectors"`
	OriginalPriceSelectors []string    `json:"originalPriceSelectors,omitempty"`
	ImageSelectors         []string    `json:"imageSelectors,omitempty"`
	LinkSelectors          []string    `json:"linkSelectors,omitempty"`
	CategorySelectors      []string    `json:"categorySelectors,omitempty"`
	VendorSelectors        []string    `json:"vendorSelectors,omitempty"`
	SoldOutSelectors       []string    `json:"soldOutSelectors,omitempty"`
	Pagination             *Pagination `json:"pagination,omitempty"`
}

// Label returns the rule-set name, or its container selector when unnamed
func (r *RuleSet) Label() string {
	if r == nil {
		return ""
	}
	if r.Name != "" {
		return r.Name
	}
	return r.ContainerSelector
}

// MallConfig is the static description of one source mall. Supplied externally, never
// produced by the pipeline.
type MallConfig struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	BaseURL     string            `json:"baseUrl"`
	Region      string            `json:"region,omitempty"`
	Domains     []string          `json:"domains,omitempty"`
	Platform    string            `json:"platform,omitempty"`
	RenderMode  RenderMode        `json:"renderMode,omitempty"`
	Encoding    string            `json:"encoding,omitempty"`
	StartURLs   []string          `json:"startUrls,omitempty"`
	MaxPages    int               `json:"maxPages,omitempty"`
	CategoryMap map[string]string `json:"categoryMap,omitempty"`
	RuleSets    []RuleSet         `json:"ruleSets"`
}

// HostDomains returns the declared domains, or the base URL host without "www." when none
// are declared
func (m *MallConfig) HostDomains() []string {
	if len(m.Domains) > 0 {
		return m.Domains
	}
	u, err := url.Parse(m.BaseURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return []string{strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")}
}

// OwnsHost reports whether host equals one of the mall domains or is a subdomain of one
func (m *MallConfig) OwnsHost(host string) bool {
	return HostInDomains(host, m.HostDomains())
}

// HostInDomains reports whether host equals a domain or is a subdomain of one
func HostInDomains(host string, domains []string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Seeds returns the listing URLs a crawl starts from
func (m *MallConfig) Seeds() []string {
	if len(m.StartURLs) > 0 {
		return m.StartURLs
	}
	return []string{m.BaseURL}
}

// Rendered reports whether the mall needs a headless browser
func (m *MallConfig) Rendered() bool {
	return m.RenderMode == RenderBrowser
}
