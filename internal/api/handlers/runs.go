package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"market-curves/internal/api/models"
	"market-curves/internal/curve"
	"market-curves/internal/model"
	"market-curves/internal/store"
)

// RunStore is the read side of the curve store.
type RunStore interface {
	ListDays(ctx context.Context, runID string) ([]time.Time, error)
	Get(ctx context.Context, runID string, day time.Time, interval int) (*model.CurveSet, error)
	Intervals(ctx context.Context, runID string, day time.Time) ([]model.CurveSet, error)
}

// RunHandler serves the stored results of batch runs
type RunHandler struct {
	store RunStore
}

func NewRunHandler(s RunStore) *RunHandler {
	return &RunHandler{store: s}
}

// ListDays handles GET /api/v1/runs/:id/days
func (h *RunHandler) ListDays(c *gin.Context) {
	runID := c.Param("id")
	days, err := h.store.ListDays(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format(model.DateLayout)
	}
	c.JSON(http.StatusOK, models.DaysResponse{RunID: runID, Days: out, Count: len(out)})
}

// ListIntervals handles GET /api/v1/runs/:id/days/:day
func (h *RunHandler) ListIntervals(c *gin.Context) {
	runID := c.Param("id")
	day, err := time.Parse(model.DateLayout, c.Param("day"))
	if err != nil {
		invalidRequest(c, fmt.Errorf("day must be in YYYY-MM-DD format"))
		return
	}

	sets, err := h.store.Intervals(c.Request.Context(), runID, day)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(sets) == 0 {
		writeError(c, fmt.Errorf("run %s has no curves on %s: %w", runID, c.Param("day"), store.ErrNotFound))
		return
	}

	out := models.IntervalsResponse{
		RunID:     runID,
		Day:       day.Format(model.DateLayout),
		Intervals: make([]models.IntervalSummary, len(sets)),
		Count:     len(sets),
	}
	for i, set := range sets {
		out.Intervals[i] = models.IntervalSummary{Interval: set.Interval, CrossPoint: set.Cross}
	}
	c.JSON(http.StatusOK, out)
}

// GetCurves handles GET /api/v1/runs/:id/curves?day=YYYY-MM-DD&interval=N
func (h *RunHandler) GetCurves(c *gin.Context) {
	var q models.CurveQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalidRequest(c, err)
		return
	}
	day, err := time.Parse(model.DateLayout, q.Day)
	if err != nil {
		invalidRequest(c, fmt.Errorf("day must be in YYYY-MM-DD format"))
		return
	}

	set, err := h.store.Get(c.Request.Context(), c.Param("id"), day, q.Interval)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CurvesResponse{
		Day:        set.Day.Format(model.DateLayout),
		Interval:   set.Interval,
		Supply:     curve.RoundCurve(set.Supply),
		Demand:     curve.RoundCurve(set.Demand),
		CrossPoint: set.Cross,
	})
}
