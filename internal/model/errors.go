package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyCurve     = errors.New("empty curve")
	ErrDisjointDomain = errors.New("curves have no common quantity domain")
	ErrMalformedRow   = errors.New("malformed row")
	ErrZeroMass       = errors.New("curve has zero total weight")
	ErrUnorderedCurve = errors.New("curve quantities are not non-decreasing")
	ErrGridTooLarge   = errors.New("interpolation grid too large")
)

// EmptyCurveError reports a (day, interval, side) with no records.
// Side is empty when the interval has no records at all.
type EmptyCurveError struct {
	Day      time.Time
	Interval int
	Side     Side
}

func (e *EmptyCurveError) Error() string {
	side := string(e.Side)
	if side == "" {
		side = "any side"
	}
	if e.Day.IsZero() {
		return fmt.Sprintf("interval %d: no %s records", e.Interval, side)
	}
	return fmt.Sprintf("%s interval %d: no %s records", e.Day.Format(DateLayout), e.Interval, side)
}

func (e *EmptyCurveError) Unwrap() error { return ErrEmptyCurve }

// DisjointDomainError is returned when the interpolation grid would be empty.
type DisjointDomainError struct {
	Min float64
	Max float64
}

func (e *DisjointDomainError) Error() string {
	return fmt.Sprintf("quantity domain [%g, %g) has zero width", e.Min, e.Max)
}

func (e *DisjointDomainError) Unwrap() error { return ErrDisjointDomain }

// UnorderedCurveError reports the first point whose quantity is below its predecessor's.
type UnorderedCurveError struct {
	Side  Side
	Index int
}

func (e *UnorderedCurveError) Error() string {
	return fmt.Sprintf("%s curve: quantity decreases at point %d", e.Side, e.Index)
}

func (e *UnorderedCurveError) Unwrap() error { return ErrUnorderedCurve }

type GridTooLargeError struct {
	Points float64
	Limit  int
}

func (e *GridTooLargeError) Error() string {
	return fmt.Sprintf("grid needs %.0f points, limit is %d", e.Points, e.Limit)
}

func (e *GridTooLargeError) Unwrap() error { return ErrGridTooLarge }

// MalformedRowError locates a row that could not be parsed.
type MalformedRowError struct {
	Path   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *MalformedRowError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "input"
	}
	if e.Column == "" {
		return fmt.Sprintf("%s:%d: %v", loc, e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: column %q value %q: %v", loc, e.Line, e.Column, e.Value, e.Err)
}

func (e *MalformedRowError) Unwrap() []error { return []error{ErrMalformedRow, e.Err} }

// TransientFetchError marks a network failure worth retrying.
type TransientFetchError struct {
	StatusCode int
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient fetch error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient fetch error: %v", e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// BatchUnitError isolates the failure of one month or one (day, interval) of a batch run.
// Day is zero and Interval is 0 for month-level failures.
type BatchUnitError struct {
	Year     int
	Month    int
	Day      time.Time
	Interval int
	Err      error
}

func (e *BatchUnitError) Error() string {
	if e.Day.IsZero() {
		return fmt.Sprintf("unit %04d-%02d: %v", e.Year, e.Month, e.Err)
	}
	return fmt.Sprintf("unit %04d-%02d %s interval %d: %v", e.Year, e.Month, e.Day.Format(DateLayout), e.Interval, e.Err)
}

func (e *BatchUnitError) Unwrap() error { return e.Err }
