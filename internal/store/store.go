package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/timshannon/badgerhold/v4"

	"market-curves/internal/model"
)

const (
	maxRetries = 5
	// Upserts per badger transaction; keeps large runs under the txn size limit.
	batchSize = 500
)

var ErrNotFound = errors.New("curve set not found")

// curveRecord is the persisted form of a model.CurveSet.
type curveRecord struct {
	ID       string
	RunID    string `badgerhold:"index"`
	Day      string
	Interval int
	Supply   model.Curve
	Demand   model.Curve
	Cross    model.CrossPoint
}

func recordID(runID string, day time.Time, interval int) string {
	return fmt.Sprintf("%s/%s/%d", runID, day.Format(model.DateLayout), interval)
}

func (r curveRecord) toSet() (model.CurveSet, error) {
	day, err := time.Parse(model.DateLayout, r.Day)
	if err != nil {
		return model.CurveSet{}, fmt.Errorf("stored day %q: %w", r.Day, err)
	}
	return model.CurveSet{
		Day:      day,
		Interval: r.Interval,
		Supply:   r.Supply,
		Demand:   r.Demand,
		Cross:    r.Cross,
	}, nil
}

// CurveStore keeps the curve sets of batch runs, keyed by (run, day, interval).
type CurveStore struct {
	store *badgerhold.Store
	stop  chan struct{}
	once  sync.Once
}

// NewCurveStore opens a store under dir. An empty dir gives an in-memory store.
func NewCurveStore(dir string, logger badger.Logger) (*CurveStore, error) {
	s := &CurveStore{stop: make(chan struct{})}
	db, err := s.createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open curve store: %s", err)
	}
	s.store = db
	return s, nil
}

func (s *CurveStore) createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-s.stop:
					return
				case <-ticker.C:
					if err := db.Badger().RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) && logger != nil {
						logger.Errorf("%s", err)
					}
				}
			}
		}()
	}

	return db, nil
}

func (s *CurveStore) Close() {
	s.once.Do(func() {
		close(s.stop)
		// nolint:all
		s.store.Close()
	})
}

// Save upserts every set under runID. Re-saving a (day, interval) replaces it.
func (s *CurveStore) Save(ctx context.Context, runID string, sets []model.CurveSet) error {
	if runID == "" {
		return fmt.Errorf("run id is empty")
	}
	for start := 0; start < len(sets); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+batchSize, len(sets))
		chunk := sets[start:end]

		upsertFn := func() error {
			return s.store.Badger().Update(func(tx *badger.Txn) error {
				for _, set := range chunk {
					rec := curveRecord{
						ID:       recordID(runID, set.Day, set.Interval),
						RunID:    runID,
						Day:      set.Day.Format(model.DateLayout),
						Interval: set.Interval,
						Supply:   set.Supply,
						Demand:   set.Demand,
						Cross:    set.Cross,
					}
					if err := s.store.TxUpsert(tx, rec.ID, rec); err != nil {
						return err
					}
				}
				return nil
			})
		}
		err := upsertFn()
		for attempts := 1; errors.Is(err, badger.ErrConflict) && attempts <= maxRetries; attempts++ {
			time.Sleep(100 * time.Millisecond)
			err = upsertFn()
		}
		if err != nil {
			return fmt.Errorf("failed to save curve sets: %w", err)
		}
	}
	return nil
}

// Get returns one stored set, or ErrNotFound.
func (s *CurveStore) Get(ctx context.Context, runID string, day time.Time, interval int) (*model.CurveSet, error) {
	var rec curveRecord
	err := s.store.Get(recordID(runID, day, interval), &rec)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get curve set: %w", err)
	}
	set, err := rec.toSet()
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// ListDays returns the distinct trading days stored for runID, ascending.
// An unknown run yields ErrNotFound.
func (s *CurveStore) ListDays(ctx context.Context, runID string) ([]time.Time, error) {
	var recs []curveRecord
	query := badgerhold.Where("RunID").Eq(runID).Index("RunID")
	if err := s.store.Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to list days: %w", err)
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}

	seen := map[string]bool{}
	days := make([]time.Time, 0)
	for _, r := range recs {
		if seen[r.Day] {
			continue
		}
		seen[r.Day] = true
		d, err := time.Parse(model.DateLayout, r.Day)
		if err != nil {
			return nil, fmt.Errorf("stored day %q: %w", r.Day, err)
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// Intervals returns the stored sets of one day, ordered by interval.
func (s *CurveStore) Intervals(ctx context.Context, runID string, day time.Time) ([]model.CurveSet, error) {
	var recs []curveRecord
	query := badgerhold.Where("RunID").Eq(runID).Index("RunID").
		And("Day").Eq(day.Format(model.DateLayout)).
		SortBy("Interval")
	if err := s.store.Find(&recs, query); err != nil {
		return nil, fmt.Errorf("failed to list intervals: %w", err)
	}
	out := make([]model.CurveSet, 0, len(recs))
	for _, r := range recs {
		set, err := r.toSet()
		if err != nil {
			return nil, err
		}
		out = append(out, set)
	}
	return out, nil
}
