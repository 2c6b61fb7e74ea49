package handlers

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"market-curves/internal/api/models"
	"market-curves/internal/curve"
	"market-curves/internal/model"
)

// CurveHandler exposes the curve builder, intersection and distance over HTTP
type CurveHandler struct {
	step      float64
	maxPoints int
}

// NewCurveHandler creates a curve handler. step is the default grid step for requests
// that do not set one; maxPoints caps every request's grid (0 keeps the finder default).
func NewCurveHandler(step float64, maxPoints int) *CurveHandler {
	if step <= 0 {
		step = curve.DefaultStep
	}
	return &CurveHandler{step: step, maxPoints: maxPoints}
}

func (h *CurveHandler) finder(step float64) curve.Finder {
	if step <= 0 {
		step = h.step
	}
	f := curve.NewFinder(step)
	f.MaxGridPoints = h.maxPoints
	return f
}

// BuildCurves handles POST /api/v1/curves
func (h *CurveHandler) BuildCurves(c *gin.Context) {
	var req models.CurvesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	records, err := toRecords(req.Records)
	if err != nil {
		writeError(c, err)
		return
	}
	day := records[0].Day()
	for _, r := range records[1:] {
		if !r.Day().Equal(day) {
			invalidRequest(c, errors.New("records must share one trading date"))
			return
		}
	}

	supply, demand, err := curve.Build(records, req.Interval)
	if err != nil {
		writeError(c, err)
		return
	}
	finder := h.finder(req.GridStep)
	cross, err := finder.Find(supply, demand)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CurvesResponse{
		Day:        day.Format(model.DateLayout),
		Interval:   req.Interval,
		Supply:     curve.RoundCurve(supply),
		Demand:     curve.RoundCurve(demand),
		CrossPoint: cross,
	})
}

// FindCross handles POST /api/v1/cross
func (h *CurveHandler) FindCross(c *gin.Context) {
	var req models.CrossRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	finder := h.finder(req.GridStep)
	cross, err := finder.Find(req.Supply, req.Demand)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CrossResponse{CrossPoint: cross, GridStep: finder.Step})
}

// Distance handles POST /api/v1/distance
func (h *CurveHandler) Distance(c *gin.Context) {
	var req models.DistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	a, b := req.A, req.B
	if req.Sample > 0 {
		rng := rand.New(rand.NewSource(req.Seed))
		a = curve.Subsample(a, req.Sample, rng)
		b = curve.Subsample(b, req.Sample, rng)
	}

	d, err := curve.Wasserstein(a, b)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DistanceResponse{
		Distance: curve.Round(d),
		PointsA:  len(a),
		PointsB:  len(b),
	})
}

func toRecords(in []models.RecordInput) ([]model.BidOfferRecord, error) {
	out := make([]model.BidOfferRecord, 0, len(in))
	for i, r := range in {
		day, err := time.Parse(model.DateLayout, r.TradingDate)
		if err != nil {
			return nil, &model.MalformedRowError{Path: "request", Line: i + 1, Column: "trading_date", Value: r.TradingDate, Err: err}
		}
		side, err := model.ParseSide(r.Side)
		if err != nil {
			return nil, &model.MalformedRowError{Path: "request", Line: i + 1, Column: "side", Value: r.Side, Err: err}
		}
		out = append(out, model.BidOfferRecord{
			TradingDate:    day,
			IntervalNumber: r.IntervalNumber,
			Side:           side,
			Price:          r.Price,
			Quantity:       r.Quantity,
		})
	}
	return out, nil
}
