package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"market-curves/internal/curve"
	"market-curves/internal/model"
)

// BaselineMAE is the mean absolute error of a persistence forecast that predicts each value
// with the value shiftDays earlier.
func BaselineMAE(values []float64, shiftDays, intervalsPerDay int) (float64, error) {
	if shiftDays < 1 || intervalsPerDay < 1 {
		return 0, fmt.Errorf("shift days and intervals per day must be positive")
	}
	shift := shiftDays * intervalsPerDay
	if len(values) <= shift {
		return 0, fmt.Errorf("need more than %d values, got %d", shift, len(values))
	}
	sum := 0.0
	n := len(values) - shift
	for i := 0; i < n; i++ {
		sum += math.Abs(values[i] - values[i+shift])
	}
	return sum / float64(n), nil
}

// ClearingPrices returns the cross-point prices in (day, interval) order.
func ClearingPrices(sets []model.CurveSet) []float64 {
	sorted := append([]model.CurveSet(nil), sets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key().Less(sorted[j].Key()) })
	out := make([]float64, len(sorted))
	for i, s := range sorted {
		out[i] = s.Cross.Price
	}
	return out
}

// DayDistance is the supply-curve distance of one interval against the previous day.
type DayDistance struct {
	Day      time.Time
	Interval int
	Distance float64
}

// DayOverDayDistance compares each supply curve with the same interval on the previous
// calendar day. Pairs whose distance cannot be computed are skipped and counted.
func DayOverDayDistance(sets []model.CurveSet) ([]DayDistance, int) {
	index := make(map[model.Key]model.CurveSet, len(sets))
	for _, s := range sets {
		index[s.Key()] = s
	}

	var out []DayDistance
	skipped := 0
	for _, s := range sets {
		prev, ok := index[model.Key{Day: s.Day.AddDate(0, 0, -1), Interval: s.Interval}]
		if !ok {
			continue
		}
		d, err := curve.Wasserstein(prev.Supply, s.Supply)
		if err != nil {
			skipped++
			continue
		}
		out = append(out, DayDistance{Day: s.Day, Interval: s.Interval, Distance: d})
	}
	sort.Slice(out, func(i, j int) bool {
		return model.Key{Day: out[i].Day, Interval: out[i].Interval}.Less(model.Key{Day: out[j].Day, Interval: out[j].Interval})
	})
	return out, skipped
}
