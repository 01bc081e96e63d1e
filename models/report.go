package models

// Price range buckets used in Stats.PriceRanges, in display order
var PriceRangeLabels = []string{"under5000", "5000-10000", "10000-20000", "20000-50000", "over50000"}

// Stats holds computed analytics over a set of products
type Stats struct {
	Count       int            `json:"count"`
	MinPrice    int64          `json:"minPrice"`
	MaxPrice    int64          `json:"maxPrice"`
	AvgPrice    float64        `json:"avgPrice"`
	Categories  map[string]int `json:"categories"`
	PriceRanges map[string]int `json:"priceRanges"`
	Samples     []Sample       `json:"samples,omitempty"`
}

// Sample is a short preview of one product for operator reports
type Sample struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
}

// MergeReport summarizes one merge of a mall batch into the catalog
type MergeReport struct {
	MallID           string         `json:"mallId"`
	Added            int            `json:"added"`
	Updated          int            `json:"updated"`
	Unchanged        int            `json:"unchanged"`
	SkippedDuplicate int            `json:"skippedDuplicate"`
	Rejected         int            `json:"rejected"`
	Rejections       map[string]int `json:"rejections,omitempty"`
	CatalogSize      int            `json:"catalogSize"`
	BackupPath       string         `json:"backupPath,omitempty"`
	Stats            *Stats         `json:"stats,omitempty"`
}

// Severity of a verification issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of the verifier
type Issue struct {
	ProductID string   `json:"productId"`
	Field     string   `json:"field"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
}

// VerificationReport is the diagnostic result of re-checking a mall's catalog records
type VerificationReport struct {
	MallID       string  `json:"mallId"`
	ValidCount   int     `json:"validCount"`
	InvalidCount int     `json:"invalidCount"`
	WarningCount int     `json:"warningCount"`
	Issues       []Issue `json:"issues"`
	Stats        *Stats  `json:"stats,omitempty"`
}

// Passed reports whether no record failed an invariant
func (r *VerificationReport) Passed() bool {
	return r.InvalidCount == 0
}

// RunStatus is the outcome of one mall run
type RunStatus string

const (
	RunOK     RunStatus = "ok"
	RunEmpty  RunStatus = "empty"
	RunFailed RunStatus = "failed"
)

// Reasons attached to runs that produced no products
const (
	ReasonFetchError      = "FetchError"
	ReasonExtractionEmpty = "ExtractionEmpty"
	ReasonStoreError      = "StoreError"
)

// RunResult is the outcome of scraping one mall end to end
type RunResult struct {
	MallID  string              `json:"mallId"`
	Status  RunStatus           `json:"status"`
	Reason  string              `json:"reason,omitempty"`
	Pages   int                 `json:"pages"`
	RuleSet string              `json:"ruleSet,omitempty"`
	Raw     int                 `json:"raw"`
	Merge   *MergeReport        `json:"merge,omitempty"`
	Verify  *VerificationReport `json:"verify,omitempty"`
	Error   string              `json:"error,omitempty"`
	Err     error               `json:"-"`
}

// Failed reports whether the run ended in an unrecoverable error
func (r *RunResult) Failed() bool {
	return r.Status == RunFailed
}
