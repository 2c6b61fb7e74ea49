package curve

import (
	"math/rand"

	"market-curves/internal/model"
)

// Subsample keeps each point of c independently with the given probability, drawing from
// rng. Callers own rng; the same seed reproduces the same selection.
// Point order is preserved.
func Subsample(c model.Curve, probability float64, rng *rand.Rand) model.Curve {
	capacity := 0
	if probability > 0 {
		capacity = min(len(c), int(float64(len(c))*probability)+1)
	}
	out := make(model.Curve, 0, capacity)
	for _, p := range c {
		if rng.Float64() < probability {
			out = append(out, p)
		}
	}
	return out
}
