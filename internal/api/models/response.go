package models

import "market-curves/internal/model"

// CurvesResponse carries both curves of one interval and their crossing
type CurvesResponse struct {
	Day        string           `json:"day,omitempty"`
	Interval   int              `json:"interval"`
	Supply     model.Curve      `json:"supply"`
	Demand     model.Curve      `json:"demand"`
	CrossPoint model.CrossPoint `json:"cross_point"`
}

// CrossResponse represents the result of an intersection
type CrossResponse struct {
	CrossPoint model.CrossPoint `json:"cross_point"`
	GridStep   float64          `json:"grid_step"`
}

// DistanceResponse represents the distance between two curves
type DistanceResponse struct {
	Distance float64 `json:"distance"`
	PointsA  int     `json:"points_a"`
	PointsB  int     `json:"points_b"`
}

// DaysResponse lists the trading days stored for a run
type DaysResponse struct {
	RunID string   `json:"run_id"`
	Days  []string `json:"days"`
	Count int      `json:"count"`
}

// IntervalsResponse lists the crossings stored for one day of a run
type IntervalsResponse struct {
	RunID     string            `json:"run_id"`
	Day       string            `json:"day"`
	Intervals []IntervalSummary `json:"intervals"`
	Count     int               `json:"count"`
}

type IntervalSummary struct {
	Interval   int              `json:"interval"`
	CrossPoint model.CrossPoint `json:"cross_point"`
}

// RegionInfo represents one market region
type RegionInfo struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Market    string  `json:"market"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
