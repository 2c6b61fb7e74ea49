package models

import "market-curves/internal/model"

// RecordInput is one bid/offer row as sent by API clients.
type RecordInput struct {
	TradingDate    string  `json:"trading_date" binding:"required"` // YYYY-MM-DD
	IntervalNumber int     `json:"interval_number" binding:"required,min=1"`
	Side           string  `json:"side" binding:"required,oneof=Bid Offer"`
	Price          float64 `json:"price"`
	Quantity       float64 `json:"quantity" binding:"min=0"`
}

// CurvesRequest represents the request body for building one interval's curves
type CurvesRequest struct {
	Records  []RecordInput `json:"records" binding:"required,min=1,dive"`
	Interval int           `json:"interval" binding:"required,min=1"`
	GridStep float64       `json:"grid_step,omitempty" binding:"omitempty,gt=0"`
}

// CrossRequest represents the request body for intersecting two prebuilt curves
type CrossRequest struct {
	Supply   model.Curve `json:"supply" binding:"required"`
	Demand   model.Curve `json:"demand" binding:"required"`
	GridStep float64     `json:"grid_step,omitempty" binding:"omitempty,gt=0"`
}

// DistanceRequest represents the request body for comparing two curves.
// When Sample is set both curves are subsampled with that probability first.
type DistanceRequest struct {
	A      model.Curve `json:"a" binding:"required"`
	B      model.Curve `json:"b" binding:"required"`
	Sample float64     `json:"sample,omitempty" binding:"omitempty,gt=0,lte=1"`
	Seed   int64       `json:"seed,omitempty"`
}

// CurveQuery selects one stored interval of a run
type CurveQuery struct {
	Day      string `form:"day" binding:"required"`
	Interval int    `form:"interval" binding:"required,min=1"`
}
