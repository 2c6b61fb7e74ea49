package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"market-curves/internal/curve"
	"market-curves/internal/data"
	"market-curves/internal/model"
)

// Unit is one (year, month) input file.
type Unit struct {
	Year  int
	Month int
}

func (u Unit) String() string { return fmt.Sprintf("%04d-%02d", u.Year, u.Month) }

// Units expands years x months in order. Months outside 1..12 are rejected.
func Units(years, months []int) ([]Unit, error) {
	out := make([]Unit, 0, len(years)*len(months))
	for _, y := range years {
		for _, m := range months {
			if m < 1 || m > 12 {
				return nil, fmt.Errorf("month %d out of range 1..12", m)
			}
			out = append(out, Unit{Year: y, Month: m})
		}
	}
	return out, nil
}

type Engine struct {
	Source  data.RecordSource
	Finder  curve.Finder
	Workers int // 0 means one worker per unit
}

func New(src data.RecordSource, f curve.Finder, workers int) *Engine {
	return &Engine{Source: src, Finder: f, Workers: workers}
}

// unitResult is written by exactly one task.
type unitResult struct {
	sets     []model.CurveSet
	failures []*model.BatchUnitError
}

// Run processes every (year, month) unit concurrently. A failing unit never cancels its
// siblings; its errors are collected on the result. Run itself only fails on bad input or
// when ctx is cancelled before all units have resolved.
func (e *Engine) Run(ctx context.Context, years, months []int) (*Result, error) {
	if e.Source == nil {
		return nil, fmt.Errorf("record source is nil")
	}
	units, err := Units(years, months)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no units to process")
	}

	runID := uuid.New()
	started := time.Now().UTC()
	logger := log.WithField("run", runID.String())
	logger.Infof("Batch: processing %d units", len(units))

	results := make([]unitResult, len(units))
	g := new(errgroup.Group)
	if e.Workers > 0 {
		g.SetLimit(e.Workers)
	}
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].failures = []*model.BatchUnitError{{Year: u.Year, Month: u.Month, Err: err}}
				return nil
			}
			results[i] = e.processUnit(ctx, u)
			ulog := logger.WithFields(log.Fields{"unit": u.String(), "intervals": len(results[i].sets)})
			if n := len(results[i].failures); n > 0 {
				ulog.WithField("failures", n).Warn("Batch: unit finished with failures")
			} else {
				ulog.Debug("Batch: unit finished")
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch run %s: %w", runID, err)
	}

	res := &Result{
		RunID:     runID,
		StartedAt: started,
		Units:     units,
	}
	for _, r := range results {
		res.Sets = append(res.Sets, r.sets...)
		res.Failures = append(res.Failures, r.failures...)
	}
	sort.Slice(res.Sets, func(i, j int) bool { return res.Sets[i].Key().Less(res.Sets[j].Key()) })
	res.FinishedAt = time.Now().UTC()

	logger.WithFields(log.Fields{
		"intervals": len(res.Sets),
		"failures":  len(res.Failures),
		"elapsed":   res.FinishedAt.Sub(started).String(),
	}).Info("Batch: run complete")
	return res, nil
}

func (e *Engine) processUnit(ctx context.Context, u Unit) unitResult {
	records, err := e.Source.Records(ctx, u.Year, u.Month)
	if err != nil {
		return unitResult{failures: []*model.BatchUnitError{{Year: u.Year, Month: u.Month, Err: err}}}
	}

	intervals := curve.Intervals(records)
	byDay := model.GroupByDay(records)
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var out unitResult
	for _, day := range days {
		sets, errs := curve.BuildDay(day, byDay[day], intervals, e.Finder)
		out.sets = append(out.sets, sets...)
		for _, err := range errs {
			out.failures = append(out.failures, locate(u, err))
		}
	}
	return out
}

func locate(u Unit, err error) *model.BatchUnitError {
	ue := &model.BatchUnitError{Year: u.Year, Month: u.Month, Err: err}
	if day, interval, ok := curve.Location(err); ok {
		ue.Day, ue.Interval = day, interval
	}
	return ue
}

// EmptyOnly reports whether every failure is an empty-curve case. Sparse intervals are
// common in real data, so callers may choose to treat such runs as clean.
func (r *Result) EmptyOnly() bool {
	for _, f := range r.Failures {
		if !errors.Is(f, model.ErrEmptyCurve) {
			return false
		}
	}
	return true
}
