package market

import (
	"math"
	"testing"

	"EstateScanner/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestIntervalFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size    float64
		wantMin float64
		ok      bool
	}{
		{25, 0, true},
		{30, 0, true},
		{31, 31, true},
		{30.5, 0, false}, // boundary gap: no bucket is inclusive of 30.5
		{60, 51, true},
		{600, 501, true},
		{0, 0, false},
		{-5, 0, false},
	}

	for _, tt := range tests {
		iv, ok := IntervalFor(tt.size)
		if ok != tt.ok {
			t.Errorf("IntervalFor(%v) ok = %v, want %v", tt.size, ok, tt.ok)
			continue
		}
		if ok && iv.Min != tt.wantMin {
			t.Errorf("IntervalFor(%v) = [%v,%v], want min %v", tt.size, iv.Min, iv.Max, tt.wantMin)
		}
	}
}

func TestExpandSizeRange(t *testing.T) {
	t.Parallel()

	min, max := ExpandSizeRange(floatPtr(50), floatPtr(70))
	if min == nil || *min != 51 || max == nil || *max != 70 {
		t.Errorf("expand 50–70 = (%v, %v), want (51, 70)", deref(min), deref(max))
	}

	min, max = ExpandSizeRange(floatPtr(45), floatPtr(75))
	if min == nil || *min != 31 || max == nil || *max != 90 {
		t.Errorf("expand 45–75 = (%v, %v), want (31, 90)", deref(min), deref(max))
	}

	min, max = ExpandSizeRange(floatPtr(520), nil)
	if min == nil || *min != 501 || max != nil {
		t.Errorf("expand 520– = (%v, %v), want (501, unbounded)", deref(min), deref(max))
	}

	min, max = ExpandSizeRange(nil, nil)
	if min != nil || max != nil {
		t.Errorf("expand nil range = (%v, %v), want untouched", deref(min), deref(max))
	}
}

func deref(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func segmentListings(location, propertyType, condition string, sizes, prices []float64) []domain.Listing {
	listings := make([]domain.Listing, len(sizes))
	for i := range sizes {
		listings[i] = domain.Listing{
			URL:          location + propertyType + condition + string(rune('a'+i)),
			Location:     location,
			PropertyType: propertyType,
			Condition:    condition,
			Size:         floatPtr(sizes[i]),
			PriceHUF:     floatPtr(prices[i]),
		}
	}
	return listings
}

func TestComputeSegmentsStats(t *testing.T) {
	t.Parallel()

	// Two listings at 100 and 200 Ft/m²: size 10 each, prices 1000 and 2000.
	listings := segmentListings("Budapest VIII. kerület", domain.TypeApartment, domain.ConditionGood,
		[]float64{10, 10}, []float64{1000, 2000})

	segments := ComputeSegments(listings)
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}

	var stats SegmentStats
	for _, s := range segments {
		stats = s
	}

	if stats.Count != 2 {
		t.Errorf("Count = %d, want 2", stats.Count)
	}
	if stats.Mean != 150 {
		t.Errorf("Mean = %v, want 150", stats.Mean)
	}
	if stats.Median != 150 {
		t.Errorf("Median = %v, want 150", stats.Median)
	}
	if stats.Min != 100 || stats.Max != 200 {
		t.Errorf("Min/Max = %v/%v, want 100/200", stats.Min, stats.Max)
	}
	if stats.StdDev <= 0 {
		t.Errorf("StdDev = %v, want > 0", stats.StdDev)
	}
}

func TestComputeSegmentsExcludesSingletons(t *testing.T) {
	t.Parallel()

	listings := segmentListings("Budapest V. kerület", domain.TypeApartment, domain.ConditionGood,
		[]float64{60}, []float64{30_000_000})

	if segments := ComputeSegments(listings); len(segments) != 0 {
		t.Fatalf("singleton segment must be absent, got %d", len(segments))
	}
}

func TestComputeSegmentsSkipsGapSizes(t *testing.T) {
	t.Parallel()

	listings := segmentListings("Budapest V. kerület", domain.TypeApartment, domain.ConditionGood,
		[]float64{30.5, 30.5}, []float64{10_000_000, 12_000_000})

	if segments := ComputeSegments(listings); len(segments) != 0 {
		t.Fatalf("gap-size listings must not form segments, got %d", len(segments))
	}
}

// referenceMarket builds six same-segment apartments at 450,000 Ft/m²
// (size 60, good condition, district VIII).
func referenceMarket() []domain.Listing {
	sizes := []float64{60, 60, 60, 60, 60, 60}
	prices := make([]float64, 6)
	for i := range prices {
		prices[i] = 450_000 * 60
	}
	return segmentListings("Budapest VIII. kerület, Corvin", domain.TypeApartment, domain.ConditionGood, sizes, prices)
}

func TestScoreAgainstReferenceMarket(t *testing.T) {
	t.Parallel()

	analyzer := NewAnalyzer(referenceMarket())

	subject := domain.Listing{
		Location:     "Budapest VIII. kerület, Corvin",
		PropertyType: domain.TypeApartment,
		Condition:    domain.ConditionGood,
		Size:         floatPtr(60),
		PriceHUF:     floatPtr(30_000_000),
		Rooms:        floatPtr(2),
	}

	insight := analyzer.Insight(subject)
	if insight == nil {
		t.Fatal("expected an insight for the exact segment")
	}
	if insight.Comparison != ComparisonExact {
		t.Errorf("Comparison = %q, want exact", insight.Comparison)
	}
	if math.Abs(insight.DiffPct-11.111111) > 0.001 {
		t.Errorf("DiffPct = %v, want ≈11.11", insight.DiffPct)
	}
	if insight.Label != LabelAboveMarket {
		t.Errorf("Label = %q, want above market", insight.Label)
	}
	if insight.SampleCount != 6 {
		t.Errorf("SampleCount = %d, want 6", insight.SampleCount)
	}

	score := analyzer.Score(subject)
	if score == nil {
		t.Fatal("expected a score")
	}
	// market ≈8.9, rooms 20, confidence 12, condition 8, size bonus 0.
	if *score != 48.9 {
		t.Errorf("Score = %v, want 48.9", *score)
	}
}

func TestScoreDeterminism(t *testing.T) {
	t.Parallel()

	analyzer := NewAnalyzer(referenceMarket())
	subject := domain.Listing{
		Location:     "Budapest VIII. kerület, Corvin",
		PropertyType: domain.TypeApartment,
		Condition:    domain.ConditionGood,
		Size:         floatPtr(60),
		PriceHUF:     floatPtr(30_000_000),
		Rooms:        floatPtr(2),
	}

	first := analyzer.Score(subject)
	second := analyzer.Score(subject)
	if first == nil || second == nil || *first != *second {
		t.Fatalf("scoring must be deterministic: %v vs %v", deref(first), deref(second))
	}
}

func TestInsightFallbackOrdering(t *testing.T) {
	t.Parallel()

	// Same location+type but different condition, and a same-district
	// same-condition segment elsewhere. Location+type must win.
	var listings []domain.Listing
	listings = append(listings, segmentListings("Budapest VIII. kerület, Corvin",
		domain.TypeApartment, domain.ConditionAverage, []float64{60, 60}, []float64{24_000_000, 26_000_000})...)
	listings = append(listings, segmentListings("Budapest VIII. kerület, Palotanegyed",
		domain.TypeApartment, domain.ConditionGood, []float64{60, 60}, []float64{40_000_000, 42_000_000})...)

	analyzer := NewAnalyzer(listings)

	subject := domain.Listing{
		Location:     "Budapest VIII. kerület, Corvin",
		PropertyType: domain.TypeApartment,
		Condition:    domain.ConditionGood,
		Size:         floatPtr(60),
		PriceHUF:     floatPtr(30_000_000),
	}

	insight := analyzer.Insight(subject)
	if insight == nil {
		t.Fatal("expected a fallback insight")
	}
	if insight.Comparison != ComparisonSameLocationType {
		t.Errorf("Comparison = %q, want same_location_type", insight.Comparison)
	}
}

func TestInsightDistrictFallback(t *testing.T) {
	t.Parallel()

	listings := segmentListings("Budapest VIII. kerület, Palotanegyed",
		domain.TypeApartment, domain.ConditionGood, []float64{60, 60}, []float64{27_000_000, 29_000_000})

	analyzer := NewAnalyzer(listings)

	subject := domain.Listing{
		Location:     "Budapest VIII. kerület, Corvin",
		PropertyType: domain.TypeApartment,
		Condition:    domain.ConditionGood,
		Size:         floatPtr(60),
		PriceHUF:     floatPtr(30_000_000),
	}

	insight := analyzer.Insight(subject)
	if insight == nil {
		t.Fatal("expected a district fallback insight")
	}
	if insight.Comparison != ComparisonSameDistrictType {
		t.Errorf("Comparison = %q, want same_district_type", insight.Comparison)
	}
}

func TestScoreProxyFallback(t *testing.T) {
	t.Parallel()

	analyzer := NewAnalyzer(nil)

	subject := domain.Listing{
		Location:     "Budapest IX. kerület",
		PropertyType: domain.TypeApartment,
		Condition:    domain.ConditionGood,
		Size:         floatPtr(50),
		PriceHUF:     floatPtr(25_000_000),
		Rooms:        floatPtr(2),
	}

	score := analyzer.Score(subject)
	if score == nil {
		t.Fatal("expected proxy score")
	}
	// 2*1000 / (25,000,000/50) = 0.004, rounded to two decimals
	if *score != 0 {
		t.Errorf("proxy score = %v, want 0", *score)
	}

	subject.PriceHUF = floatPtr(25_000)
	score = analyzer.Score(subject)
	if score == nil {
		t.Fatal("expected proxy score")
	}
	// 2*1000 / (25,000/50) = 4
	if *score != 4 {
		t.Errorf("proxy score = %v, want 4", *score)
	}

	subject.Rooms = nil
	if got := analyzer.Score(subject); got != nil {
		t.Errorf("proxy without rooms must be nil, got %v", *got)
	}
}

func TestRoomScoreBands(t *testing.T) {
	t.Parallel()

	house := domain.Listing{PropertyType: domain.TypeHouse, Size: floatPtr(320), Rooms: floatPtr(5)}
	// density 1.5625 → 18, +3 large-house bonus
	if got := roomScore(house); got != 21 {
		t.Errorf("house roomScore = %v, want 21", got)
	}

	apartment := domain.Listing{PropertyType: domain.TypeApartment, Size: floatPtr(60), Rooms: floatPtr(2)}
	// density 3.33 → 20
	if got := roomScore(apartment); got != 20 {
		t.Errorf("apartment roomScore = %v, want 20", got)
	}

	missing := domain.Listing{PropertyType: domain.TypeApartment}
	if got := roomScore(missing); got != 10 {
		t.Errorf("neutral roomScore = %v, want 10", got)
	}
}
