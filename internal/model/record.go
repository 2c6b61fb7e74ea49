package model

import (
	"fmt"
	"time"
)

// DateLayout is the canonical trading-date format used in outputs and API params.
const DateLayout = "2006-01-02"

// Side says whether a record is a buy (Bid) or a sell (Offer) commitment.
// Values match the "Bid or Offer" column of the market CSV extracts.
type Side string

const (
	SideBid   Side = "Bid"
	SideOffer Side = "Offer"
)

func ParseSide(s string) (Side, error) {
	switch s {
	case string(SideBid):
		return SideBid, nil
	case string(SideOffer):
		return SideOffer, nil
	default:
		return "", fmt.Errorf("unknown side %q, expected Bid or Offer", s)
	}
}

// BidOfferRecord is one row of a bid/offer stack extract.
//
// Units:
// - Price: $/MWh (may be negative)
// - Quantity: MWh (>= 0)
type BidOfferRecord struct {
	TradingDate    time.Time `json:"trading_date"`
	IntervalNumber int       `json:"interval_number"`
	Side           Side      `json:"side"`
	Price          float64   `json:"price"`
	Quantity       float64   `json:"quantity"`
}

// Day returns the trading date truncated to midnight UTC.
func (r BidOfferRecord) Day() time.Time {
	return TruncateDay(r.TradingDate)
}

func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Key identifies one trading interval of one day.
type Key struct {
	Day      time.Time
	Interval int
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.Day.Format(DateLayout), k.Interval)
}

// Less orders keys by day, then interval.
func (k Key) Less(o Key) bool {
	if !k.Day.Equal(o.Day) {
		return k.Day.Before(o.Day)
	}
	return k.Interval < o.Interval
}

// GroupByDay splits records into day-keyed slices, preserving input order within a day.
func GroupByDay(records []BidOfferRecord) map[time.Time][]BidOfferRecord {
	out := map[time.Time][]BidOfferRecord{}
	for _, r := range records {
		d := r.Day()
		out[d] = append(out[d], r)
	}
	return out
}
