package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// CurvePoint is one vertex of a step curve: cumulative quantity (MWh) at a price ($/MWh).
// It serializes as a two-element array [quantity, price].
type CurvePoint struct {
	Quantity float64
	Price    float64
}

func (p CurvePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Quantity, p.Price})
}

func (p *CurvePoint) UnmarshalJSON(raw []byte) error {
	var pair []float64
	if err := json.Unmarshal(raw, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("curve point must be [quantity, price], got %d values", len(pair))
	}
	p.Quantity, p.Price = pair[0], pair[1]
	return nil
}

// Curve is an ordered point list for one (day, interval, side).
// Cumulative quantity is non-decreasing along the slice for both sides.
type Curve []CurvePoint

// CrossPoint is the approximate clearing point of a supply and a demand curve.
type CrossPoint struct {
	Quantity float64
	Price    float64
}

func (c CrossPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Quantity, c.Price})
}

func (c *CrossPoint) UnmarshalJSON(raw []byte) error {
	var p CurvePoint
	if err := p.UnmarshalJSON(raw); err != nil {
		return err
	}
	c.Quantity, c.Price = p.Quantity, p.Price
	return nil
}

// CurveSet holds both curves of one trading interval and their crossing.
type CurveSet struct {
	Day      time.Time
	Interval int
	Supply   Curve
	Demand   Curve
	Cross    CrossPoint
}

func (s CurveSet) Key() Key {
	return Key{Day: s.Day, Interval: s.Interval}
}

// IntervalResult is one output row of a per-side, per-year table.
type IntervalResult struct {
	Day        string     `json:"day"`
	Interval   int        `json:"interval"`
	RawCurve   Curve      `json:"raw_curve"`
	CrossPoint CrossPoint `json:"cross_point"`
}
