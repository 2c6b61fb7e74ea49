package batch

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-curves/internal/curve"
	"market-curves/internal/data"
	"market-curves/internal/model"
)

type fakeSource struct {
	mu      sync.Mutex
	byUnit  map[Unit][]model.BidOfferRecord
	errs    map[Unit]error
	active  int
	maxSeen int
}

func (f *fakeSource) Records(ctx context.Context, year, month int) ([]model.BidOfferRecord, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()
	time.Sleep(5 * time.Millisecond)

	u := Unit{Year: year, Month: month}
	if err := f.errs[u]; err != nil {
		return nil, err
	}
	recs, ok := f.byUnit[u]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", u, os.ErrNotExist)
	}
	return recs, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(day time.Time, interval int, side model.Side, price, qty float64) model.BidOfferRecord {
	return model.BidOfferRecord{TradingDate: day, IntervalNumber: interval, Side: side, Price: price, Quantity: qty}
}

func fullInterval(day time.Time, interval int) []model.BidOfferRecord {
	return []model.BidOfferRecord{
		rec(day, interval, model.SideOffer, 10, 5),
		rec(day, interval, model.SideOffer, 12, 5),
		rec(day, interval, model.SideBid, 20, 6),
		rec(day, interval, model.SideBid, 15, 6),
	}
}

func newFixtureSource() *fakeSource {
	jan1, jan2 := date(2023, 1, 1), date(2023, 1, 2)
	var jan []model.BidOfferRecord
	// Day 2 comes first in the file to check day ordering.
	jan = append(jan, fullInterval(jan2, 1)...)
	jan = append(jan, fullInterval(jan1, 1)...)
	jan = append(jan, rec(jan1, 2, model.SideOffer, 30, 1))

	return &fakeSource{
		byUnit: map[Unit][]model.BidOfferRecord{
			{2023, 1}: jan,
			{2024, 1}: fullInterval(date(2024, 1, 15), 1),
		},
		errs: map[Unit]error{
			{2023, 2}: &model.MalformedRowError{Path: "2023-02.csv", Line: 7, Column: "Price ($/MWh)", Value: "abc", Err: errors.New("not a number")},
		},
	}
}

func TestEngineRun(t *testing.T) {
	src := newFixtureSource()
	e := New(src, curve.NewFinder(0.5), 2)

	res, err := e.Run(context.Background(), []int{2023, 2024}, []int{1, 2})
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID.String())
	assert.Len(t, res.Units, 4)
	assert.LessOrEqual(t, src.maxSeen, 2)

	require.Len(t, res.Sets, 3)
	assert.Equal(t, date(2023, 1, 1), res.Sets[0].Day)
	assert.Equal(t, date(2023, 1, 2), res.Sets[1].Day)
	assert.Equal(t, date(2024, 1, 15), res.Sets[2].Day)

	supply, demand, err := curve.Build(fullInterval(date(2023, 1, 1), 1), 1)
	require.NoError(t, err)
	want, err := curve.NewFinder(0.5).Find(supply, demand)
	require.NoError(t, err)
	assert.Equal(t, want, res.Sets[0].Cross)
	assert.Equal(t, supply, res.Sets[0].Supply)

	require.Len(t, res.Failures, 4)

	// 2023-01: interval 2 is offers-only on day 1 and absent on day 2.
	assert.Equal(t, date(2023, 1, 1), res.Failures[0].Day)
	assert.Equal(t, 2, res.Failures[0].Interval)
	assert.ErrorIs(t, res.Failures[0], model.ErrEmptyCurve)
	assert.Equal(t, date(2023, 1, 2), res.Failures[1].Day)
	assert.Equal(t, 2, res.Failures[1].Interval)

	// 2023-02: malformed file fails the whole month.
	assert.Equal(t, 2, res.Failures[2].Month)
	assert.True(t, res.Failures[2].Day.IsZero())
	assert.ErrorIs(t, res.Failures[2], model.ErrMalformedRow)

	// 2024-02: missing file.
	assert.Equal(t, 2024, res.Failures[3].Year)
	assert.ErrorIs(t, res.Failures[3], os.ErrNotExist)

	assert.False(t, res.EmptyOnly())
	assert.Equal(t, []int{2023, 2024}, res.Years())
}

func TestEngineRunSingleWorker(t *testing.T) {
	src := newFixtureSource()
	res, err := New(src, curve.NewFinder(0), 1).Run(context.Background(), []int{2023}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, 1, src.maxSeen)
	assert.Len(t, res.Sets, 2)
	assert.True(t, res.EmptyOnly())
}

func TestEngineRunErrors(t *testing.T) {
	_, err := New(nil, curve.NewFinder(0), 0).Run(context.Background(), []int{2023}, []int{1})
	assert.Error(t, err)

	_, err = New(newFixtureSource(), curve.NewFinder(0), 0).Run(context.Background(), []int{2023}, []int{13})
	assert.Error(t, err)

	_, err = New(newFixtureSource(), curve.NewFinder(0), 0).Run(context.Background(), nil, []int{1})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(newFixtureSource(), curve.NewFinder(0), 0).Run(ctx, []int{2023}, []int{1, 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteResult(t *testing.T) {
	res, err := New(newFixtureSource(), curve.NewFinder(0.5), 0).Run(context.Background(), []int{2023, 2024}, []int{1})
	require.NoError(t, err)

	dir := t.TempDir()
	files, err := WriteResult(dir, res)
	require.NoError(t, err)
	assert.Len(t, files, 8)

	rows, err := data.LoadIntervalResults(filepath.Join(dir, "2023", "supply.json"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2023-01-01", rows[0].Day)
	assert.Equal(t, 1, rows[0].Interval)
	assert.Equal(t, res.Sets[0].Supply, rows[0].RawCurve)

	demand, err := data.LoadIntervalResults(filepath.Join(dir, "2023", "demand.json"))
	require.NoError(t, err)
	assert.Equal(t, res.Sets[0].Demand, demand[0].RawCurve)
	assert.Equal(t, rows[0].CrossPoint, demand[0].CrossPoint)

	f, err := os.Open(filepath.Join(dir, "2024", "supply.csv"))
	require.NoError(t, err)
	defer f.Close()
	table, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, []string{"day", "interval", "raw_curve", "cross_quantity", "cross_price"}, table[0])
	assert.Equal(t, "2024-01-15", table[1][0])
	assert.Equal(t, "[[5,10],[5,10],[10,12],[10,12]]", table[1][2])
}

func TestRowsRounds(t *testing.T) {
	sets := []model.CurveSet{{
		Day:      date(2023, 5, 1),
		Interval: 3,
		Supply:   model.Curve{{Quantity: 1.123456, Price: 9.87654321}},
		Demand:   model.Curve{{Quantity: 2, Price: 3}},
		Cross:    model.CrossPoint{Quantity: 1.00005, Price: 2.33333},
	}}
	rows := Rows(sets, model.SideOffer)
	require.Len(t, rows, 1)
	assert.Equal(t, model.Curve{{Quantity: 1.1235, Price: 9.8765}}, rows[0].RawCurve)
	assert.Equal(t, model.CrossPoint{Quantity: 1.0001, Price: 2.3333}, rows[0].CrossPoint)

	assert.Equal(t, model.Curve{{Quantity: 2, Price: 3}}, Rows(sets, model.SideBid)[0].RawCurve)
}
