package market

import "math"

// Interval is one of the fixed size buckets used for market segmentation.
// Max is +Inf for the open-ended top bucket.
type Interval struct {
	Min float64
	Max float64
}

// SizeIntervals are the fixed, ascending m² buckets. The bucket check is
// inclusive on both ends, so fractional sizes strictly between adjacent
// integer boundaries (e.g. 30.5) fall into no bucket and are excluded from
// segmentation. Cached statistics depend on that exclusion; do not close the
// gaps without checking downstream consumers.
var SizeIntervals = []Interval{
	{0, 30},
	{31, 50},
	{51, 70},
	{71, 90},
	{91, 120},
	{121, 150},
	{151, 200},
	{201, 300},
	{301, 500},
	{501, math.Inf(1)},
}

// IntervalFor returns the bucket containing size, if any.
func IntervalFor(size float64) (Interval, bool) {
	if size <= 0 {
		return Interval{}, false
	}
	for _, iv := range SizeIntervals {
		if iv.Min <= size && size <= iv.Max {
			return iv, true
		}
	}
	return Interval{}, false
}

// ExpandSizeRange widens a requested size range outward to the union of the
// buckets it overlaps, so a crawl fills whole segments instead of slicing
// them. Overlap is strict: a request starting exactly on a bucket's upper
// boundary does not drag that bucket in. Returns nil bounds unchanged, and
// the original range when no bucket overlaps. An unbounded top bucket yields
// a nil max.
func ExpandSizeRange(min, max *float64) (*float64, *float64) {
	if min == nil && max == nil {
		return nil, nil
	}

	reqMin := 0.0
	if min != nil {
		reqMin = *min
	}
	reqMax := math.Inf(1)
	if max != nil {
		reqMax = *max
	}

	var required []Interval
	for _, iv := range SizeIntervals {
		if iv.Max > reqMin && iv.Min < reqMax {
			required = append(required, iv)
		}
	}
	if len(required) == 0 {
		return min, max
	}

	expandedMin := required[0].Min
	expandedMax := required[len(required)-1].Max

	var outMax *float64
	if !math.IsInf(expandedMax, 1) {
		outMax = &expandedMax
	}
	return &expandedMin, outMax
}
