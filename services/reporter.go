package services

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mallcatalog/models"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// PrintRunSummary renders one row per mall run. Runs without products show their reason.
func PrintRunSummary(w io.Writer, results []*models.RunResult) {
	t := newTable(w, "SCRAPE SUMMARY")
	t.AppendHeader(table.Row{"Mall", "Status", "Pages", "Raw", "Added", "Updated", "Unchanged", "Rejected", "Catalog", "Note"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})

	for _, r := range results {
		added, updated, unchanged, rejected, size := 0, 0, 0, 0, 0
		if r.Merge != nil {
			added, updated, unchanged = r.Merge.Added, r.Merge.Updated, r.Merge.Unchanged
			rejected, size = r.Merge.Rejected, r.Merge.CatalogSize
		}
		note := ""
		if r.Reason != "" {
			note = fmt.Sprintf("0 products, reason: %s", r.Reason)
		}
		if r.Merge != nil && r.Merge.Rejected > 0 {
			note = joinNote(note, formatCounts(r.Merge.Rejections))
		}
		t.AppendRow(table.Row{r.MallID, string(r.Status), r.Pages, r.Raw, added, updated, unchanged, rejected, size, note})
	}
	t.Render()
}

// PrintStats renders the statistics block of one mall
func PrintStats(w io.Writer, mallID string, stats *models.Stats) {
	if stats == nil {
		return
	}
	t := newTable(w, fmt.Sprintf("STATS %s", mallID))
	t.AppendRow(table.Row{"Products", stats.Count})
	t.AppendRow(table.Row{"Min price", formatWon(stats.MinPrice)})
	t.AppendRow(table.Row{"Max price", formatWon(stats.MaxPrice)})
	t.AppendRow(table.Row{"Avg price", formatWon(int64(stats.AvgPrice + 0.5))})
	t.AppendSeparator()
	for _, label := range models.PriceRangeLabels {
		t.AppendRow(table.Row{label, stats.PriceRanges[label]})
	}
	t.AppendSeparator()
	for _, kv := range sortedCounts(stats.Categories) {
		t.AppendRow(table.Row{kv.key, kv.count})
	}
	t.Render()

	if len(stats.Samples) > 0 {
		s := newTable(w, "")
		s.AppendHeader(table.Row{"#", "Name", "Price", "Category"})
		for i, sample := range stats.Samples {
			s.AppendRow(table.Row{i + 1, truncate(sample.Name, 40), formatWon(sample.Price), sample.Category})
		}
		s.Render()
	}
}

// PrintVerificationReport renders the verdict and every issue of a verification run
func PrintVerificationReport(w io.Writer, report *models.VerificationReport) {
	verdict := "PASSED"
	if !report.Passed() {
		verdict = "FAILED"
	}
	t := newTable(w, fmt.Sprintf("VERIFY %s: %s", report.MallID, verdict))
	t.AppendRow(table.Row{"Valid", report.ValidCount})
	t.AppendRow(table.Row{"Invalid", report.InvalidCount})
	t.AppendRow(table.Row{"Warnings", report.WarningCount})
	t.Render()

	if len(report.Issues) > 0 {
		issues := newTable(w, "")
		issues.AppendHeader(table.Row{"Product", "Field", "Severity", "Message"})
		for _, is := range report.Issues {
			issues.AppendRow(table.Row{is.ProductID, is.Field, string(is.Severity), truncate(is.Message, 80)})
		}
		issues.Render()
	}
	PrintStats(w, report.MallID, report.Stats)
}

// PrintMalls lists the configured malls
func PrintMalls(w io.Writer, malls []*models.MallConfig) {
	t := newTable(w, "")
	t.AppendHeader(table.Row{"ID", "Name", "Region", "Mode", "Seeds", "Rule-sets", "Base URL"})
	for _, m := range malls {
		t.AppendRow(table.Row{m.ID, m.Name, m.Region, string(m.RenderMode), len(m.Seeds()), len(m.RuleSets), m.BaseURL})
	}
	t.Render()
}

// WriteJSON emits v as indented JSON, for --json output
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type keyCount struct {
	key   string
	count int
}

// sortedCounts orders a histogram by count descending, then key
func sortedCounts(m map[string]int) []keyCount {
	out := make([]keyCount, 0, len(m))
	for k, v := range m {
		out = append(out, keyCount{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func formatCounts(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for _, kv := range sortedCounts(m) {
		parts = append(parts, fmt.Sprintf("%s=%d", kv.key, kv.count))
	}
	return strings.Join(parts, " ")
}

func joinNote(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "; " + b
}

// formatWon renders 12900 as "12,900원"
func formatWon(v int64) string {
	s := fmt.Sprintf("%d", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "원"
	if neg {
		return "-" + out
	}
	return out
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
