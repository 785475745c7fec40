package market

import (
	"math"
	"sort"
	"strings"

	"EstateScanner/internal/domain"
)

// SegmentKey identifies one comparison population: listings sharing location,
// type, condition, and size bucket.
type SegmentKey struct {
	Location     string
	PropertyType string
	Condition    string
	Interval     Interval
}

// SegmentStats are the aggregate price-per-m² statistics of one segment.
type SegmentStats struct {
	Count  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	StdDev float64
}

// minSegmentSize excludes segments too small for meaningful statistics.
const minSegmentSize = 2

// ComputeSegments groups every listing with complete location/type/condition/
// size/price data into its segment and computes the statistics. Segments with
// fewer than two members are omitted. Listings whose size falls into no
// bucket are skipped.
func ComputeSegments(listings []domain.Listing) map[SegmentKey]SegmentStats {
	groups := make(map[SegmentKey][]float64)

	for _, l := range listings {
		if l.Location == "" || l.PropertyType == "" || l.Condition == "" {
			continue
		}
		if l.Size == nil || l.PriceHUF == nil || *l.Size <= 0 || *l.PriceHUF <= 0 {
			continue
		}
		interval, ok := IntervalFor(*l.Size)
		if !ok {
			continue
		}

		key := SegmentKey{
			Location:     l.Location,
			PropertyType: l.PropertyType,
			Condition:    l.Condition,
			Interval:     interval,
		}
		groups[key] = append(groups[key], *l.PriceHUF / *l.Size)
	}

	segments := make(map[SegmentKey]SegmentStats, len(groups))
	for key, prices := range groups {
		if len(prices) < minSegmentSize {
			continue
		}
		segments[key] = computeStats(prices)
	}
	return segments
}

func computeStats(prices []float64) SegmentStats {
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	var sum float64
	for _, p := range sorted {
		sum += p
	}
	mean := sum / float64(len(sorted))

	var sqDiff float64
	for _, p := range sorted {
		sqDiff += (p - mean) * (p - mean)
	}

	return SegmentStats{
		Count:  len(sorted),
		Mean:   mean,
		Median: median(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		StdDev: math.Sqrt(sqDiff / float64(len(sorted)-1)),
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Comparison levels, from exact segment hit to the widest fallback.
const (
	ComparisonExact            = "exact"
	ComparisonSameLocationType = "same_location_type"
	ComparisonSameDistrictType = "same_district_type"
)

// Value labels by deviation from the segment mean.
const (
	LabelExcellentValue = "excellent value"
	LabelGoodValue      = "good value"
	LabelAtMarket       = "at market"
	LabelAboveMarket    = "above market"
	LabelExpensive      = "expensive"
	LabelUnknown        = "unknown"
)

// Insight compares one listing against its market segment.
type Insight struct {
	PricePerSqm  float64
	MarketAvg    float64
	DiffPct      float64
	DiffAbsolute float64
	SampleCount  int
	StdDev       float64
	Comparison   string
	Interval     Interval
	Label        string
}

// Analyzer answers segment lookups and valuation scoring over a snapshot of
// the store. Segment keys are held sorted so fallback matching is
// deterministic.
type Analyzer struct {
	segments map[SegmentKey]SegmentStats
	keys     []SegmentKey
}

// NewAnalyzer computes the segment statistics for the given listings.
func NewAnalyzer(listings []domain.Listing) *Analyzer {
	segments := ComputeSegments(listings)

	keys := make([]SegmentKey, 0, len(segments))
	for key := range segments {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Location != b.Location {
			return a.Location < b.Location
		}
		if a.PropertyType != b.PropertyType {
			return a.PropertyType < b.PropertyType
		}
		if a.Condition != b.Condition {
			return a.Condition < b.Condition
		}
		return a.Interval.Min < b.Interval.Min
	})

	return &Analyzer{segments: segments, keys: keys}
}

// Segments exposes the computed statistics.
func (a *Analyzer) Segments() map[SegmentKey]SegmentStats {
	return a.segments
}

// Insight locates the listing's segment and derives the market comparison.
// When the exact segment is missing it falls back, in order, to the same
// location and type with any condition, then to the same type and condition
// anywhere in the listing's district. Nil when no level matches or the
// listing's own data is incomplete.
func (a *Analyzer) Insight(l domain.Listing) *Insight {
	if l.Location == "" || l.PropertyType == "" || l.Condition == "" {
		return nil
	}
	if l.Size == nil || l.PriceHUF == nil || *l.Size <= 0 || *l.PriceHUF <= 0 {
		return nil
	}
	interval, ok := IntervalFor(*l.Size)
	if !ok {
		return nil
	}

	pricePerSqm := *l.PriceHUF / *l.Size

	exactKey := SegmentKey{
		Location:     l.Location,
		PropertyType: l.PropertyType,
		Condition:    l.Condition,
		Interval:     interval,
	}

	comparison := ComparisonExact
	stats, found := a.segments[exactKey]
	if !found {
		comparison, stats, found = a.fallback(l, interval)
	}
	if !found {
		return nil
	}

	diffPct := (pricePerSqm - stats.Mean) / stats.Mean * 100

	return &Insight{
		PricePerSqm:  pricePerSqm,
		MarketAvg:    stats.Mean,
		DiffPct:      diffPct,
		DiffAbsolute: pricePerSqm - stats.Mean,
		SampleCount:  stats.Count,
		StdDev:       stats.StdDev,
		Comparison:   comparison,
		Interval:     interval,
		Label:        valueLabel(diffPct),
	}
}

func (a *Analyzer) fallback(l domain.Listing, interval Interval) (string, SegmentStats, bool) {
	district := districtToken(l.Location)

	var (
		districtKey   SegmentKey
		districtFound bool
	)
	for _, key := range a.keys {
		if key.Interval != interval {
			continue
		}
		if key.Location == l.Location && key.PropertyType == l.PropertyType {
			return ComparisonSameLocationType, a.segments[key], true
		}
		if !districtFound &&
			key.PropertyType == l.PropertyType &&
			key.Condition == l.Condition &&
			districtToken(key.Location) == district {
			districtKey = key
			districtFound = true
		}
	}
	if districtFound {
		return ComparisonSameDistrictType, a.segments[districtKey], true
	}
	return "", SegmentStats{}, false
}

// districtToken is the top-level district part of an address line.
func districtToken(location string) string {
	return strings.TrimSpace(strings.SplitN(location, ",", 2)[0])
}

func valueLabel(diffPct float64) string {
	switch {
	case diffPct <= -15:
		return LabelExcellentValue
	case diffPct <= -5:
		return LabelGoodValue
	case diffPct <= 5:
		return LabelAtMarket
	case diffPct <= 15:
		return LabelAboveMarket
	}
	return LabelExpensive
}
