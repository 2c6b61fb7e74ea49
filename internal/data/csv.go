package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"market-curves/internal/model"
)

// Column names of the bid/offer stack extracts.
const (
	ColTradingDate = "Trading Date"
	ColInterval    = "Interval Number"
	ColSide        = "Bid or Offer"
	ColPrice       = "Price ($/MWh)"
	ColQuantity    = "Quantity (MWh)"
)

var requiredColumns = []string{ColTradingDate, ColInterval, ColSide, ColPrice, ColQuantity}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// RecordSource supplies the raw records of one month.
type RecordSource interface {
	Records(ctx context.Context, year, month int) ([]model.BidOfferRecord, error)
}

// CSVSource reads one CSV file per month. PathFormat may contain {year} and {month}
// placeholders, e.g. "data/{year}/bids-offers-{year}-{month}.csv".
type CSVSource struct {
	PathFormat      string
	IntervalsPerDay int // 0 disables the upper bound check
}

func (s CSVSource) Records(ctx context.Context, year, month int) ([]model.BidOfferRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadRecordsCSV(FormatPath(s.PathFormat, year, month), s.IntervalsPerDay)
}

// FormatPath fills the {year} and {month} placeholders. Months are zero padded.
func FormatPath(format string, year, month int) string {
	r := strings.NewReplacer(
		"{year}", strconv.Itoa(year),
		"{month}", fmt.Sprintf("%02d", month),
	)
	return r.Replace(format)
}

func ReadRecordsCSV(path string, intervalsPerDay int) ([]model.BidOfferRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRecordsCSV(f, path, intervalsPerDay)
}

// ParseRecordsCSV parses a bid/offer extract. The first malformed row fails the whole
// input with a *model.MalformedRowError; values are never coerced.
func ParseRecordsCSV(r io.Reader, name string, intervalsPerDay int) ([]model.BidOfferRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &model.MalformedRowError{Path: name, Line: 1, Err: errors.New("missing header")}
	}
	if err != nil {
		return nil, &model.MalformedRowError{Path: name, Line: 1, Err: err}
	}
	idx := map[string]int{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[h] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, &model.MalformedRowError{Path: name, Line: 1, Column: col, Err: errors.New("missing column")}
		}
	}

	var out []model.BidOfferRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &model.MalformedRowError{Path: name, Line: line, Err: err}
		}
		line, _ := cr.FieldPos(0)
		rec, err := parseRow(row, idx, intervalsPerDay)
		if err != nil {
			var mre *model.MalformedRowError
			if errors.As(err, &mre) {
				mre.Path, mre.Line = name, line
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string, idx map[string]int, intervalsPerDay int) (model.BidOfferRecord, error) {
	field := func(col string) (string, error) {
		i := idx[col]
		if i >= len(row) {
			return "", &model.MalformedRowError{Column: col, Err: errors.New("missing value")}
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			return "", &model.MalformedRowError{Column: col, Err: errors.New("missing value")}
		}
		return v, nil
	}

	var rec model.BidOfferRecord

	v, err := field(ColTradingDate)
	if err != nil {
		return rec, err
	}
	day, err := parseDate(v)
	if err != nil {
		return rec, &model.MalformedRowError{Column: ColTradingDate, Value: v, Err: err}
	}
	rec.TradingDate = day

	if v, err = field(ColInterval); err != nil {
		return rec, err
	}
	interval, err := strconv.Atoi(v)
	if err != nil {
		return rec, &model.MalformedRowError{Column: ColInterval, Value: v, Err: err}
	}
	if interval < 1 {
		return rec, &model.MalformedRowError{Column: ColInterval, Value: v, Err: errors.New("interval must be at least 1")}
	}
	if intervalsPerDay > 0 && interval > intervalsPerDay {
		return rec, &model.MalformedRowError{Column: ColInterval, Value: v, Err: fmt.Errorf("interval out of range 1..%d", intervalsPerDay)}
	}
	rec.IntervalNumber = interval

	if v, err = field(ColSide); err != nil {
		return rec, err
	}
	side, err := model.ParseSide(v)
	if err != nil {
		return rec, &model.MalformedRowError{Column: ColSide, Value: v, Err: err}
	}
	rec.Side = side

	if v, err = field(ColPrice); err != nil {
		return rec, err
	}
	price, err := parseFinite(v)
	if err != nil {
		return rec, &model.MalformedRowError{Column: ColPrice, Value: v, Err: err}
	}
	rec.Price = price

	if v, err = field(ColQuantity); err != nil {
		return rec, err
	}
	qty, err := parseFinite(v)
	if err != nil {
		return rec, &model.MalformedRowError{Column: ColQuantity, Value: v, Err: err}
	}
	if qty < 0 {
		return rec, &model.MalformedRowError{Column: ColQuantity, Value: v, Err: errors.New("quantity must be >= 0")}
	}
	rec.Quantity = qty

	return rec, nil
}

func parseFinite(s string) (float64, error) {
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, errors.New("value is not finite")
	}
	return x, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.TruncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date (expected YYYY-MM-DD)")
}
