package curve

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"market-curves/internal/model"
)

// Build turns the bid/offer records of one trading day into the supply (offers) and
// demand (bids) curves of the given interval.
//
// Records of other intervals are ignored. If the interval has no records at all, or one
// side has none, an *model.EmptyCurveError is returned; the curve of the side that does
// have records is still returned so callers can inspect it.
func Build(records []model.BidOfferRecord, interval int) (supply, demand model.Curve, err error) {
	var offers, bids []model.BidOfferRecord
	var day time.Time
	for _, r := range records {
		if r.IntervalNumber != interval {
			continue
		}
		if day.IsZero() {
			day = r.Day()
		}
		switch r.Side {
		case model.SideOffer:
			offers = append(offers, r)
		case model.SideBid:
			bids = append(bids, r)
		}
	}
	if len(offers) == 0 && len(bids) == 0 {
		return nil, nil, &model.EmptyCurveError{Day: day, Interval: interval}
	}

	// Stable sorts keep input order among equal prices, which fixes the min cumulative
	// quantity reported for a tied price level.
	sort.SliceStable(offers, func(i, j int) bool { return offers[i].Price < offers[j].Price })
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })

	supply = discretize(offers)
	demand = discretize(bids)

	sort.SliceStable(supply, func(i, j int) bool {
		if supply[i].Price != supply[j].Price {
			return supply[i].Price < supply[j].Price
		}
		return supply[i].Quantity < supply[j].Quantity
	})
	// Demand runs from the highest price down, with quantity rising inside a price level,
	// so cumulative quantity never decreases along either curve.
	sort.SliceStable(demand, func(i, j int) bool {
		if demand[i].Price != demand[j].Price {
			return demand[i].Price > demand[j].Price
		}
		return demand[i].Quantity < demand[j].Quantity
	})

	switch {
	case len(offers) == 0:
		err = &model.EmptyCurveError{Day: day, Interval: interval, Side: model.SideOffer}
	case len(bids) == 0:
		err = &model.EmptyCurveError{Day: day, Interval: interval, Side: model.SideBid}
	}
	return supply, demand, err
}

// discretize accumulates quantities in the given (price-sorted) order and collapses each
// price level to two points: its minimum and maximum cumulative quantity.
func discretize(sorted []model.BidOfferRecord) model.Curve {
	if len(sorted) == 0 {
		return model.Curve{}
	}
	type level struct {
		price    float64
		min, max float64
	}
	levels := make([]level, 0, len(sorted))
	index := map[float64]int{}
	cum := 0.0
	for _, r := range sorted {
		cum += r.Quantity
		if i, ok := index[r.Price]; ok {
			if cum < levels[i].min {
				levels[i].min = cum
			}
			if cum > levels[i].max {
				levels[i].max = cum
			}
			continue
		}
		index[r.Price] = len(levels)
		levels = append(levels, level{price: r.Price, min: cum, max: cum})
	}

	out := make(model.Curve, 0, 2*len(levels))
	for _, l := range levels {
		out = append(out,
			model.CurvePoint{Quantity: l.min, Price: l.price},
			model.CurvePoint{Quantity: l.max, Price: l.price},
		)
	}
	return out
}

// Intervals returns the sorted distinct interval numbers present in records.
func Intervals(records []model.BidOfferRecord) []int {
	seen := map[int]bool{}
	out := []int{}
	for _, r := range records {
		if !seen[r.IntervalNumber] {
			seen[r.IntervalNumber] = true
			out = append(out, r.IntervalNumber)
		}
	}
	sort.Ints(out)
	return out
}

// BuildDay builds and intersects every requested interval of one day.
// Failures are returned per interval and never stop the remaining intervals.
func BuildDay(day time.Time, records []model.BidOfferRecord, intervals []int, f Finder) ([]model.CurveSet, []error) {
	sets := make([]model.CurveSet, 0, len(intervals))
	var errs []error
	for _, interval := range intervals {
		supply, demand, err := Build(records, interval)
		if err != nil {
			var empty *model.EmptyCurveError
			if errors.As(err, &empty) && empty.Day.IsZero() {
				empty.Day = day
			}
			errs = append(errs, err)
			continue
		}
		cross, err := f.Find(supply, demand)
		if err != nil {
			errs = append(errs, &intervalError{day: day, interval: interval, err: err})
			continue
		}
		sets = append(sets, model.CurveSet{
			Day:      day,
			Interval: interval,
			Supply:   supply,
			Demand:   demand,
			Cross:    cross,
		})
	}
	return sets, errs
}

// intervalError attaches the location of a failed intersection.
type intervalError struct {
	day      time.Time
	interval int
	err      error
}

func (e *intervalError) Error() string {
	return fmt.Sprintf("%s interval %d: %v", e.day.Format(model.DateLayout), e.interval, e.err)
}

func (e *intervalError) Unwrap() error { return e.err }

// Location reports the (day, interval) the error belongs to.
func Location(err error) (time.Time, int, bool) {
	var ie *intervalError
	if errors.As(err, &ie) {
		return ie.day, ie.interval, true
	}
	var empty *model.EmptyCurveError
	if errors.As(err, &empty) {
		return empty.Day, empty.Interval, true
	}
	return time.Time{}, 0, false
}
