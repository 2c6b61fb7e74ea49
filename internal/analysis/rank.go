package analysis

import (
	"sort"
	"time"

	"market-curves/internal/model"
)

type DaySummary struct {
	Day time.Time
	ClearingSummary
}

// RankDaysBySpread summarises each trading day and sorts descending by P95-P05 spread.
// Ties keep ascending day order.
func RankDaysBySpread(sets []model.CurveSet) []DaySummary {
	byDay := map[time.Time][]model.CurveSet{}
	for _, s := range sets {
		byDay[s.Day] = append(byDay[s.Day], s)
	}
	out := make([]DaySummary, 0, len(byDay))
	for day, daySets := range byDay {
		out = append(out, DaySummary{Day: day, ClearingSummary: ClearingStats(daySets)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SpreadP95P05 != out[j].SpreadP95P05 {
			return out[i].SpreadP95P05 > out[j].SpreadP95P05
		}
		return out[i].Day.Before(out[j].Day)
	})
	return out
}
