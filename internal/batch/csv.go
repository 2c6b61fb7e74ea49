package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"market-curves/internal/model"
)

// WriteSideCSV writes one side's rows. raw_curve is stored as a JSON array in a single column.
func WriteSideCSV(path string, rows []model.IntervalResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"day",
		"interval",
		"raw_curve",
		"cross_quantity",
		"cross_price",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		raw, err := json.Marshal(r.RawCurve)
		if err != nil {
			return fmt.Errorf("%s interval %d: %w", r.Day, r.Interval, err)
		}
		row := []string{
			r.Day,
			strconv.Itoa(r.Interval),
			string(raw),
			fmtFloat(r.CrossPoint.Quantity),
			fmtFloat(r.CrossPoint.Price),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(path string, rows []model.IntervalResult) error {
	raw, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// WriteYear writes <dir>/<year>/{supply,demand}.{csv,json} and returns the files written.
func WriteYear(dir string, year int, sets []model.CurveSet) ([]string, error) {
	yearDir := filepath.Join(dir, strconv.Itoa(year))
	if err := os.MkdirAll(yearDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var written []string
	for _, side := range []struct {
		name string
		side model.Side
	}{
		{"supply", model.SideOffer},
		{"demand", model.SideBid},
	} {
		rows := Rows(sets, side.side)

		csvPath := filepath.Join(yearDir, side.name+".csv")
		if err := WriteSideCSV(csvPath, rows); err != nil {
			return written, fmt.Errorf("write %s: %w", csvPath, err)
		}
		jsonPath := filepath.Join(yearDir, side.name+".json")
		if err := WriteJSON(jsonPath, rows); err != nil {
			return written, fmt.Errorf("write %s: %w", jsonPath, err)
		}
		written = append(written, csvPath, jsonPath)
	}
	return written, nil
}

// WriteResult writes every year of r under dir.
func WriteResult(dir string, r *Result) ([]string, error) {
	byYear := r.ByYear()
	var written []string
	for _, y := range r.Years() {
		files, err := WriteYear(dir, y, byYear[y])
		written = append(written, files...)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
