package batch

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"market-curves/internal/curve"
	"market-curves/internal/model"
)

// Result is the merged output of one batch run.
// Sets are sorted by (day, interval); Failures keep unit order.
type Result struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Units      []Unit

	Sets     []model.CurveSet
	Failures []*model.BatchUnitError
}

// ByYear groups the sets by trading-date year, keeping their order.
func (r *Result) ByYear() map[int][]model.CurveSet {
	out := map[int][]model.CurveSet{}
	for _, s := range r.Sets {
		y := s.Day.Year()
		out[y] = append(out[y], s)
	}
	return out
}

// Years returns the years that produced at least one set, ascending.
func (r *Result) Years() []int {
	seen := map[int]bool{}
	var out []int
	for _, s := range r.Sets {
		if y := s.Day.Year(); !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Ints(out)
	return out
}

// Rows converts sets into per-side output rows with numerics rounded for output.
func Rows(sets []model.CurveSet, side model.Side) []model.IntervalResult {
	rows := make([]model.IntervalResult, 0, len(sets))
	for _, s := range sets {
		raw := s.Supply
		if side == model.SideBid {
			raw = s.Demand
		}
		rows = append(rows, model.IntervalResult{
			Day:      s.Day.Format(model.DateLayout),
			Interval: s.Interval,
			RawCurve: curve.RoundCurve(raw),
			CrossPoint: model.CrossPoint{
				Quantity: curve.Round(s.Cross.Quantity),
				Price:    curve.Round(s.Cross.Price),
			},
		})
	}
	return rows
}
