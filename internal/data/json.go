package data

import (
	"encoding/json"
	"os"

	"market-curves/internal/model"
)

// LoadCurveJSON reads a curve stored as [[quantity, price], ...].
func LoadCurveJSON(path string) (model.Curve, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c model.Curve
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadIntervalResults reads a per-year JSON table written by the batch writer.
func LoadIntervalResults(path string) ([]model.IntervalResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []model.IntervalResult
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
