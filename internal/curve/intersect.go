package curve

import (
	"fmt"
	"math"
	"sort"

	"market-curves/internal/model"
)

// DefaultStep is the grid resolution (MWh) used when none is configured.
const DefaultStep = 0.5

// DefaultMaxGridPoints caps the grid when Finder.MaxGridPoints is unset.
const DefaultMaxGridPoints = 2_000_000

// tieTolerance treats price gaps closer than this as equal, so the lowest quantity wins.
const tieTolerance = 1e-9

// Finder locates the crossing of a supply and a demand curve by sampling both on a
// uniform quantity grid and picking the point with the smallest price gap.
type Finder struct {
	// Step is the grid spacing in MWh. Zero means DefaultStep.
	Step float64
	// MaxGridPoints bounds the number of sampled quantities. Zero means DefaultMaxGridPoints.
	MaxGridPoints int
}

func NewFinder(step float64) Finder {
	return Finder{Step: step}
}

func (f Finder) step() float64 {
	if f.Step == 0 {
		return DefaultStep
	}
	return f.Step
}

func (f Finder) maxGridPoints() int {
	if f.MaxGridPoints <= 0 {
		return DefaultMaxGridPoints
	}
	return f.MaxGridPoints
}

// Find returns the grid point where the two curves are closest in price.
//
// The grid spans [min, max) of both curves' quantities. Ties resolve to the lowest
// quantity. The returned price is the supply price at that quantity; both values are
// rounded to Places decimals.
//
// Both curves must be ordered by non-decreasing quantity, as Build produces them.
func (f Finder) Find(supply, demand model.Curve) (model.CrossPoint, error) {
	if len(supply) == 0 {
		return model.CrossPoint{}, &model.EmptyCurveError{Side: model.SideOffer}
	}
	if len(demand) == 0 {
		return model.CrossPoint{}, &model.EmptyCurveError{Side: model.SideBid}
	}
	step := f.step()
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return model.CrossPoint{}, fmt.Errorf("grid step must be > 0, got %g", step)
	}

	if err := checkOrdered(supply, model.SideOffer); err != nil {
		return model.CrossPoint{}, err
	}
	if err := checkOrdered(demand, model.SideBid); err != nil {
		return model.CrossPoint{}, err
	}

	xMin := math.Min(supply[0].Quantity, demand[0].Quantity)
	xMax := math.Max(supply[len(supply)-1].Quantity, demand[len(demand)-1].Quantity)

	limit := f.maxGridPoints()
	span := math.Ceil((xMax - xMin) / step)
	if span > float64(limit)+1 {
		return model.CrossPoint{}, &model.GridTooLargeError{Points: span, Limit: limit}
	}
	n := int(span)
	// Rounding in the division can leave the last point on xMax itself.
	for n > 0 && xMin+float64(n-1)*step >= xMax {
		n--
	}
	if n <= 0 {
		return model.CrossPoint{}, &model.DisjointDomainError{Min: xMin, Max: xMax}
	}
	if n > limit {
		return model.CrossPoint{}, &model.GridTooLargeError{Points: float64(n), Limit: limit}
	}

	best := -1
	bestGap := math.Inf(1)
	bestX, bestPrice := 0.0, 0.0
	for i := 0; i < n; i++ {
		x := xMin + float64(i)*step
		sp := Interpolate(supply, x)
		dp := Interpolate(demand, x)
		gap := math.Abs(sp - dp)
		if best < 0 || gap < bestGap-tieTolerance {
			best, bestGap = i, gap
			bestX, bestPrice = x, sp
		}
	}
	return model.CrossPoint{Quantity: Round(bestX), Price: Round(bestPrice)}, nil
}

// Interpolate evaluates c at quantity x by linear interpolation between neighbouring
// points. Outside the curve's quantity range the first or last price is returned.
// At a vertical jump (repeated quantity) the upper point of the jump is used.
//
// c must be ordered by non-decreasing quantity and must not be empty.
func Interpolate(c model.Curve, x float64) float64 {
	n := len(c)
	if x <= c[0].Quantity {
		if x == c[0].Quantity {
			return c[upper(c, x)].Price
		}
		return c[0].Price
	}
	if x >= c[n-1].Quantity {
		return c[n-1].Price
	}
	j := sort.Search(n, func(k int) bool { return c[k].Quantity > x })
	i := j - 1
	lo, hi := c[i], c[j]
	frac := (x - lo.Quantity) / (hi.Quantity - lo.Quantity)
	return lo.Price + frac*(hi.Price-lo.Price)
}

// checkOrdered rejects curves whose quantities ever decrease.
func checkOrdered(c model.Curve, side model.Side) error {
	for i := 1; i < len(c); i++ {
		if c[i].Quantity < c[i-1].Quantity || math.IsNaN(c[i].Quantity) {
			return &model.UnorderedCurveError{Side: side, Index: i}
		}
	}
	if math.IsNaN(c[0].Quantity) {
		return &model.UnorderedCurveError{Side: side, Index: 0}
	}
	return nil
}

// upper returns the last index whose quantity equals x.
func upper(c model.Curve, x float64) int {
	j := sort.Search(len(c), func(k int) bool { return c[k].Quantity > x })
	return j - 1
}
