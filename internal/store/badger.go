package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/fitness"
	"github.com/2beens/fittrack/internal/telemetry/tracing"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

const (
	badgerUserKey        = "user"
	badgerLogPrefix      = "log/"
	badgerSetPrefix      = "set/"
	badgerActivityPrefix = "activity/"
	badgerSetSeqKey      = "seq/set"
	badgerActivitySeqKey = "seq/activity"

	badgerSeqBandwidth = 100
)

type BadgerConfig struct {
	// Path is ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// BadgerStore keeps every record as JSON under a typed key prefix.
type BadgerStore struct {
	db          *badger.DB
	setSeq      *badger.Sequence
	activitySeq *badger.Sequence
	writeMu     sync.Mutex
	now         func() time.Time
}

var _ Store = (*BadgerStore)(nil)

// the log row as stored; sets live under their own keys
type badgerDailyLog struct {
	Date     string `json:"date"`
	FoodLog  string `json:"foodLog"`
	Calories int    `json:"calories"`
	Protein  int    `json:"protein"`
}

func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(log.WithField("component", "badger")).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &BadgerStore{db: db, now: time.Now}
	if s.setSeq, err = db.GetSequence([]byte(badgerSetSeqKey), badgerSeqBandwidth); err != nil {
		return nil, multierr.Append(fmt.Errorf("set sequence: %w", err), db.Close())
	}
	if s.activitySeq, err = db.GetSequence([]byte(badgerActivitySeqKey), badgerSeqBandwidth); err != nil {
		return nil, multierr.Combine(fmt.Errorf("activity sequence: %w", err), s.setSeq.Release(), db.Close())
	}

	if err := s.seedUser(); err != nil {
		return nil, multierr.Append(err, s.Close())
	}

	return s, nil
}

func (s *BadgerStore) seedUser() error {
	return s.update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(badgerUserKey))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get user: %w", err)
		}
		return putJSON(txn, badgerUserKey, DefaultUser(s.now()))
	})
}

// update runs fn in a read-write transaction. Writers are serialized so
// read-modify-write cycles never hit badger.ErrConflict.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.Update(fn)
}

func putJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// getJSON reports false when the key does not exist.
func getJSON(txn *badger.Txn, key string, v any) (bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	}); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func scanPrefix[T any](txn *badger.Txn, prefix string, reverse bool) ([]T, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.Reverse = reverse
	it := txn.NewIterator(opts)
	defer it.Close()

	seek := []byte(prefix)
	if reverse {
		// seek past the last key of the prefix
		seek = append([]byte(prefix), 0xFF)
	}

	var res []T
	for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		res = append(res, v)
	}
	return res, nil
}

func setKey(id int64) string {
	return fmt.Sprintf("%s%020d", badgerSetPrefix, id)
}

func activityKey(id int64) string {
	return fmt.Sprintf("%s%020d", badgerActivityPrefix, id)
}

func logKey(date string) string {
	return badgerLogPrefix + date
}

func (s *BadgerStore) Snapshot(ctx context.Context) (_ *fitness.Snapshot, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.badger.snapshot")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var (
		user fitness.User
		logs []badgerDailyLog
		sets []fitness.WorkoutSet
	)
	err = s.db.View(func(txn *badger.Txn) error {
		if _, err := getJSON(txn, badgerUserKey, &user); err != nil {
			return err
		}
		var err error
		if logs, err = scanPrefix[badgerDailyLog](txn, badgerLogPrefix, false); err != nil {
			return err
		}
		sets, err = scanPrefix[fitness.WorkoutSet](txn, badgerSetPrefix, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	dailyLogs := make([]fitness.DailyLog, 0, len(logs))
	for _, l := range logs {
		dailyLogs = append(dailyLogs, fitness.DailyLog{
			Date:     l.Date,
			FoodLog:  l.FoodLog,
			Calories: l.Calories,
			Protein:  l.Protein,
		})
	}

	span.SetAttributes(attribute.Int("logs", len(logs)), attribute.Int("sets", len(sets)))
	return finishSnapshot(fitness.BuildSnapshot(user, dailyLogs, sets)), nil
}

func (s *BadgerStore) UpdateUser(ctx context.Context, patch fitness.UserPatch) (_ *fitness.User, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.badger.update_user")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var user fitness.User
	err = s.update(func(txn *badger.Txn) error {
		user = fitness.User{}
		if _, err := getJSON(txn, badgerUserKey, &user); err != nil {
			return err
		}
		user.Apply(patch)
		return putJSON(txn, badgerUserKey, user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// updateLog applies fn to the date's log row, creating the row when missing.
func (s *BadgerStore) updateLog(date string, fn func(l *badgerDailyLog)) error {
	return s.update(func(txn *badger.Txn) error {
		l := badgerDailyLog{Date: date}
		if _, err := getJSON(txn, logKey(date), &l); err != nil {
			return err
		}
		fn(&l)
		return putJSON(txn, logKey(date), l)
	})
}

func (s *BadgerStore) UpsertFoodLog(ctx context.Context, date, foodLog string) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.badger.upsert_food_log")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("date", date))

	return s.updateLog(date, func(l *badgerDailyLog) {
		l.FoodLog = foodLog
	})
}

func (s *BadgerStore) AddNutrition(ctx context.Context, date string, calories, protein int) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.badger.add_nutrition")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("date", date))

	return s.updateLog(date, func(l *badgerDailyLog) {
		l.Calories = max(0, l.Calories+calories)
		l.Protein = max(0, l.Protein+protein)
	})
}

func (s *BadgerStore) InsertSet(ctx context.Context, set fitness.WorkoutSet) (_ *fitness.WorkoutSet, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.badger.insert_set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	next, err := s.setSeq.Next()
	if err != nil {
		return nil, fmt.Errorf("next set id: %w", err)
	}
	set.ID = int64(next) + 1
	if set.CreatedAt.IsZero() {
		set.CreatedAt = s.now().UTC()
	}

	err = s.update(func(txn *badger.Txn) error {
		l := badgerDailyLog{Date: set.Date}
		found, err := getJSON(txn, logKey(set.Date), &l)
		if err != nil {
			return err
		}
		if !found {
			if err := putJSON(txn, logKey(set.Date), l); err != nil {
				return err
			}
		}
		return putJSON(txn, setKey(set.ID), set)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("set.id", set.ID))
	return &set, nil
}

func (s *BadgerStore) DeleteSet(ctx context.Context, id int64) (_ *fitness.WorkoutSet, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.badger.delete_set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("set.id", id))

	var set fitness.WorkoutSet
	err = s.update(func(txn *badger.Txn) error {
		found, err := getJSON(txn, setKey(id), &set)
		if err != nil {
			return err
		}
		if !found {
			return ErrSetNotFound
		}
		return txn.Delete([]byte(setKey(id)))
	})
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (s *BadgerStore) AddActivity(ctx context.Context, activity fitness.Activity) (_ *fitness.Activity, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.badger.add_activity")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	next, err := s.activitySeq.Next()
	if err != nil {
		return nil, fmt.Errorf("next activity id: %w", err)
	}
	activity.ID = int64(next) + 1
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.now().UTC()
	}

	if err := s.update(func(txn *badger.Txn) error {
		return putJSON(txn, activityKey(activity.ID), activity)
	}); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *BadgerStore) ListActivities(ctx context.Context) (_ []fitness.Activity, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.badger.list_activities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var activities []fitness.Activity
	err = s.db.View(func(txn *badger.Txn) error {
		var err error
		activities, err = scanPrefix[fitness.Activity](txn, badgerActivityPrefix, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []fitness.Activity{}
	}
	return activities, nil
}

func (s *BadgerStore) Close() error {
	return multierr.Combine(
		s.setSeq.Release(),
		s.activitySeq.Release(),
		s.db.Close(),
	)
}
