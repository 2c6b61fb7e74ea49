package curve

import (
	"github.com/shopspring/decimal"

	"market-curves/internal/model"
)

// Places is the number of decimal places kept in every published output.
const Places = 4

// Round rounds x half away from zero to Places decimals.
func Round(x float64) float64 {
	return decimal.NewFromFloat(x).Round(Places).InexactFloat64()
}

// RoundCurve returns a rounded copy of c.
func RoundCurve(c model.Curve) model.Curve {
	out := make(model.Curve, len(c))
	for i, p := range c {
		out[i] = model.CurvePoint{Quantity: Round(p.Quantity), Price: Round(p.Price)}
	}
	return out
}
