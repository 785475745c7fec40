package domain

import "time"

// Property type labels as stored and scored. The portal parser maps the
// portal's own vocabulary onto these.
const (
	TypeApartment = "apartment"
	TypeHouse     = "house"
	TypePlot      = "plot"
)

// Condition labels used by the valuation engine. Unknown portal values pass
// through unchanged and score at the neutral default.
const (
	ConditionExcellent  = "excellent"
	ConditionGood       = "good"
	ConditionAverage    = "average"
	ConditionRenovation = "needs-renovation"
	ConditionPoor       = "poor"
)

// Listing is one scraped property record, uniquely keyed by its portal URL.
// Raw fields keep the portal's text verbatim and stay out of API responses;
// normalized fields are derived from them and nil when the text could not be
// parsed.
type Listing struct {
	URL          string `json:"url"`
	Location     string `json:"location"`
	PropertyType string `json:"type"`
	Condition    string `json:"condition,omitempty"`
	Description  string `json:"description,omitempty"`

	RawSize          string `json:"-"`
	RawGrossSize     string `json:"-"`
	RawRooms         string `json:"-"`
	RawPriceHUF      string `json:"-"`
	RawPriceEUR      string `json:"-"`
	RawCeilingHeight string `json:"-"`

	Size          *float64 `json:"size_sqm,omitempty"`
	GrossSize     *float64 `json:"gross_size_sqm,omitempty"`
	Rooms         *float64 `json:"rooms,omitempty"`
	PriceHUF      *float64 `json:"price_huf,omitempty"`
	PriceEUR      *float64 `json:"price_eur,omitempty"`
	CeilingHeight *float64 `json:"ceiling_height_m,omitempty"`

	Score        *float64 `json:"score,omitempty"`
	MarketAvgSqm *float64 `json:"market_avg_sqm,omitempty"`
	PriceDiffPct *float64 `json:"price_diff_pct,omitempty"`
	ValueLabel   string   `json:"value_label,omitempty"`
	Insight      string   `json:"insight,omitempty"`
}

// RawSummary is the stored raw price/size pair used to decide whether a
// freshly scraped listing changed since the last crawl.
type RawSummary struct {
	PriceHUF string
	Size     string
}

// Valuation carries the derived market fields written back in the scoring
// pass.
type Valuation struct {
	URL          string
	Score        *float64
	MarketAvgSqm *float64
	PriceDiffPct *float64
	ValueLabel   string
	Insight      string
}

// SearchFilter is the structured filter supplied by the front-end. Price
// bounds are in million HUF, matching the portal's query syntax. Sort is
// excluded from history comparison.
type SearchFilter struct {
	PropertyType string   `json:"type,omitempty"`
	Location     string   `json:"location,omitempty"`
	MinPrice     *float64 `json:"min_price,omitempty"`
	MaxPrice     *float64 `json:"max_price,omitempty"`
	MinSize      *float64 `json:"min_size,omitempty"`
	MaxSize      *float64 `json:"max_size,omitempty"`
	MinRooms     *float64 `json:"min_rooms,omitempty"`
	MaxRooms     *float64 `json:"max_rooms,omitempty"`
	Sort         string   `json:"sort,omitempty"`
}

// SearchRecord is one row of the append-only search log. Filters holds the
// canonical sorted-key JSON form.
type SearchRecord struct {
	ID         int64
	Filters    string
	SearchedAt time.Time
}

// FetchStatus classifies the outcome of one detail-fetch unit.
type FetchStatus string

const (
	FetchOK     FetchStatus = "ok"
	FetchFailed FetchStatus = "failed"
)

// FetchOutcome is the typed per-listing result returned by the worker pool,
// so the orchestrator can aggregate counts instead of losing failures to
// swallowed errors.
type FetchOutcome struct {
	URL     string
	Status  FetchStatus
	Listing *Listing
	Err     error
}
