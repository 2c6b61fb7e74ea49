package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-curves/internal/model"
)

const sampleCSV = `Trading Date,Interval Number,Participant Code,Bid or Offer,Price ($/MWh),Quantity (MWh)
2023-01-01,1,ALINTA,Offer,45.5,10
2023-01-01,1,SYNERGY,Bid,120,4.25
2023/01/02,2,SYNERGY,Offer,-20,0
`

func TestParseRecordsCSV(t *testing.T) {
	recs, err := ParseRecordsCSV(strings.NewReader(sampleCSV), "sample.csv", 48)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, model.BidOfferRecord{
		TradingDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IntervalNumber: 1,
		Side:           model.SideOffer,
		Price:          45.5,
		Quantity:       10,
	}, recs[0])
	assert.Equal(t, model.SideBid, recs[1].Side)
	assert.Equal(t, 4.25, recs[1].Quantity)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), recs[2].TradingDate)
	assert.Equal(t, -20.0, recs[2].Price)
}

func TestParseRecordsCSVMalformed(t *testing.T) {
	header := "Trading Date,Interval Number,Bid or Offer,Price ($/MWh),Quantity (MWh)\n"
	tests := []struct {
		name   string
		input  string
		line   int
		column string
	}{
		{"missing column", "Trading Date,Interval Number,Bid or Offer,Price ($/MWh)\n2023-01-01,1,Bid,1\n", 1, ColQuantity},
		{"non numeric price", header + "2023-01-01,1,Bid,1,2\n2023-01-01,1,Bid,abc,2\n", 3, ColPrice},
		{"missing quantity", header + "2023-01-01,1,Offer,10,\n", 2, ColQuantity},
		{"NaN quantity", header + "2023-01-01,1,Offer,10,NaN\n", 2, ColQuantity},
		{"negative quantity", header + "2023-01-01,1,Offer,10,-1\n", 2, ColQuantity},
		{"bad side", header + "2023-01-01,1,Ask,10,1\n", 2, ColSide},
		{"bad date", header + "yesterday,1,Bid,10,1\n", 2, ColTradingDate},
		{"interval out of range", header + "2023-01-01,49,Bid,10,1\n", 2, ColInterval},
		{"interval zero", header + "2023-01-01,0,Bid,10,1\n", 2, ColInterval},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRecordsCSV(strings.NewReader(tc.input), "in.csv", 48)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrMalformedRow))

			var mre *model.MalformedRowError
			require.True(t, errors.As(err, &mre))
			assert.Equal(t, "in.csv", mre.Path)
			assert.Equal(t, tc.line, mre.Line)
			assert.Equal(t, tc.column, mre.Column)
		})
	}
}

func TestParseRecordsCSVEmpty(t *testing.T) {
	_, err := ParseRecordsCSV(strings.NewReader(""), "empty.csv", 48)
	assert.ErrorIs(t, err, model.ErrMalformedRow)
}

func TestFormatPath(t *testing.T) {
	assert.Equal(t, "data/2023/bids-2023-03.csv", FormatPath("data/{year}/bids-{year}-{month}.csv", 2023, 3))
	assert.Equal(t, "static.csv", FormatPath("static.csv", 2023, 11))
}

func TestCSVSourceRecords(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2023"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2023", "m01.csv"), []byte(sampleCSV), 0o644))

	src := CSVSource{PathFormat: filepath.Join(dir, "{year}", "m{month}.csv"), IntervalsPerDay: 48}
	recs, err := src.Records(context.Background(), 2023, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	_, err = src.Records(context.Background(), 2023, 2)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Records(ctx, 2023, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
