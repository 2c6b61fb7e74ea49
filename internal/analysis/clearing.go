package analysis

import (
	"math"
	"sort"
	"time"

	"market-curves/internal/model"
)

// ClearingSummary describes the cross-point prices of a set of intervals.
type ClearingSummary struct {
	Start time.Time
	End   time.Time

	Count int

	MinPrice  float64
	MaxPrice  float64
	MeanPrice float64
	P05Price  float64
	P95Price  float64

	SpreadP95P05 float64

	// Cleared volume, from the cross-point quantities.
	MeanQuantity float64
}

// ClearingStats summarises sets in the order given. Start and End are the first and last days.
func ClearingStats(sets []model.CurveSet) ClearingSummary {
	s := ClearingSummary{}
	if len(sets) == 0 {
		return s
	}
	s.Count = len(sets)
	s.Start = sets[0].Day
	s.End = sets[len(sets)-1].Day

	sum, qsum := 0.0, 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	vals := make([]float64, 0, len(sets))
	for _, set := range sets {
		v := set.Cross.Price
		vals = append(vals, v)
		sum += v
		qsum += set.Cross.Quantity
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	sort.Float64s(vals)
	s.MinPrice = minv
	s.MaxPrice = maxv
	s.MeanPrice = sum / float64(len(vals))
	s.MeanQuantity = qsum / float64(len(vals))
	s.P05Price = percentileSorted(vals, 0.05)
	s.P95Price = percentileSorted(vals, 0.95)
	s.SpreadP95P05 = s.P95Price - s.P05Price
	return s
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
