package market

import (
	"math"

	"EstateScanner/internal/domain"
)

// conditionScores is the fixed condition contribution table; unknown
// conditions take the neutral default.
var conditionScores = map[string]float64{
	domain.ConditionExcellent:  10,
	domain.ConditionGood:       8,
	domain.ConditionAverage:    5,
	domain.ConditionRenovation: 2,
	domain.ConditionPoor:       0,
}

const neutralConditionScore = 5

// Score derives the 0–100 valuation index for a listing. With market data it
// sums the market, room-density, confidence, condition and size-premium
// components and caps at 100 (one decimal). Without market data it falls
// back to the simple rooms-per-price proxy, which may itself be nil when
// rooms, price or size are missing.
func (a *Analyzer) Score(l domain.Listing) *float64 {
	insight := a.Insight(l)
	if insight == nil {
		return proxyScore(l)
	}

	total := marketScore(insight.DiffPct) +
		roomScore(l) +
		confidenceScore(insight.SampleCount) +
		conditionScore(l.Condition) +
		sizeBonus(l)

	score := math.Round(math.Min(total, 100)*10) / 10
	return &score
}

// proxyScore is the legacy fallback: round(rooms*1000 / (price/size), 2).
func proxyScore(l domain.Listing) *float64 {
	if l.Rooms == nil || l.PriceHUF == nil || l.Size == nil {
		return nil
	}
	if *l.Size == 0 || *l.PriceHUF == 0 {
		return nil
	}
	score := math.Round(*l.Rooms*1000/(*l.PriceHUF / *l.Size)*100) / 100
	return &score
}

// marketScore maps deviation from the segment mean onto 0–50 through
// connected linear pieces: 50 at ≤−20%, 40 at −10%, 30 at 0%, 20 at +10%,
// 10 at +20%, 0 beyond.
func marketScore(diffPct float64) float64 {
	switch {
	case diffPct <= -20:
		return 50
	case diffPct <= -10:
		return 40 + ((-10-diffPct)/10)*10
	case diffPct <= 0:
		return 30 + ((0-diffPct)/10)*10
	case diffPct <= 10:
		return 20 - (diffPct/10)*10
	case diffPct <= 20:
		return 10 - ((diffPct-10)/10)*10
	}
	return 0
}

// roomScore rewards room density (rooms per 100 m²). Houses are banded more
// leniently than apartments and large houses get a small bonus; missing
// rooms or size score neutral.
func roomScore(l domain.Listing) float64 {
	if l.Rooms == nil || l.Size == nil || *l.Size == 0 {
		return 10
	}

	density := *l.Rooms / *l.Size * 100

	if l.PropertyType == domain.TypeHouse {
		var score float64
		switch {
		case density >= 2.5:
			score = 25
		case density >= 2.0:
			score = 22
		case density >= 1.5:
			score = 18
		case density >= 1.2:
			score = 15
		case density >= 1.0:
			score = 12
		default:
			score = 8
		}
		if *l.Size >= 300 {
			score += 3
		}
		return score
	}

	switch {
	case density >= 4:
		return 25
	case density >= 3:
		return 20
	case density >= 2.5:
		return 15
	case density >= 2:
		return 10
	}
	return 5
}

// confidenceScore steps up with the matched segment's sample count.
func confidenceScore(sampleCount int) float64 {
	switch {
	case sampleCount >= 10:
		return 15
	case sampleCount >= 5:
		return 12
	case sampleCount >= 3:
		return 8
	case sampleCount >= 2:
		return 5
	}
	return 2
}

func conditionScore(condition string) float64 {
	if score, ok := conditionScores[condition]; ok {
		return score
	}
	return neutralConditionScore
}

// sizeBonus adds a small premium for unusually large properties.
func sizeBonus(l domain.Listing) float64 {
	if l.Size == nil {
		return 0
	}
	switch {
	case l.PropertyType == domain.TypeHouse && *l.Size > 400:
		return 3
	case l.PropertyType == domain.TypeApartment && *l.Size > 150:
		return 2
	}
	return 0
}
