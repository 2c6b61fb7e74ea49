package curve

import (
	"math"
	"sort"

	"market-curves/internal/model"
)

// Wasserstein returns the first Wasserstein distance between the quantity distributions
// of a and b, using each point's price as its mass.
//
// Prices may be negative, so when the lowest price across both curves is below zero both
// curves are shifted up by its magnitude before weighting. Weights are normalised per curve.
func Wasserstein(a, b model.Curve) (float64, error) {
	if len(a) == 0 {
		return 0, &model.EmptyCurveError{}
	}
	if len(b) == 0 {
		return 0, &model.EmptyCurveError{}
	}

	minPrice := math.Inf(1)
	for _, c := range []model.Curve{a, b} {
		for _, p := range c {
			minPrice = math.Min(minPrice, p.Price)
		}
	}
	offset := 0.0
	if minPrice < 0 {
		offset = math.Abs(minPrice)
	}

	u, err := newDistribution(a, offset)
	if err != nil {
		return 0, err
	}
	v, err := newDistribution(b, offset)
	if err != nil {
		return 0, err
	}

	all := make([]float64, 0, len(a)+len(b))
	all = append(all, u.values...)
	all = append(all, v.values...)
	sort.Float64s(all)

	dist := 0.0
	for i := 0; i < len(all)-1; i++ {
		delta := all[i+1] - all[i]
		if delta == 0 {
			continue
		}
		dist += math.Abs(u.cdf(all[i])-v.cdf(all[i])) * delta
	}
	return dist, nil
}

// distribution is a weighted empirical distribution sorted by value.
type distribution struct {
	values []float64
	cum    []float64 // cum[k] = total weight of values[:k]
}

func newDistribution(c model.Curve, offset float64) (distribution, error) {
	idx := make([]int, len(c))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return c[idx[i]].Quantity < c[idx[j]].Quantity })

	d := distribution{
		values: make([]float64, len(c)),
		cum:    make([]float64, len(c)+1),
	}
	for k, i := range idx {
		d.values[k] = c[i].Quantity
		d.cum[k+1] = d.cum[k] + c[i].Price + offset
	}
	total := d.cum[len(c)]
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return distribution{}, model.ErrZeroMass
	}
	return d, nil
}

// cdf returns the normalised weight of values <= x.
func (d distribution) cdf(x float64) float64 {
	k := sort.Search(len(d.values), func(i int) bool { return d.values[i] > x })
	return d.cum[k] / d.cum[len(d.values)]
}
