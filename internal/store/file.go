package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/fitness"
	"github.com/2beens/fittrack/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// fileDocument is the on-disk layout of the file backend.
type fileDocument struct {
	User           fitness.User           `json:"user"`
	DailyLogs      []fitness.DailyLog     `json:"dailyLogs"`
	WorkoutHistory fitness.WorkoutHistory `json:"workoutHistory"`
	Activities     []fitness.Activity     `json:"activities"`
	NextSetID      int64                  `json:"nextSetId"`
	NextActivityID int64                  `json:"nextActivityId"`
}

// FileStore keeps the whole state in one JSON document, rewritten atomically on
// every mutation. The mutex serializes read-modify-write cycles within the process.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("data file path is required")
	}
	s := &FileStore{path: path, now: time.Now}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		// validate the existing document once on open
		if _, err := s.read(); err != nil {
			return nil, err
		}
		return s, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	doc := &fileDocument{
		User:           DefaultUser(s.now()),
		DailyLogs:      []fitness.DailyLog{},
		WorkoutHistory: fitness.WorkoutHistory{},
		Activities:     []fitness.Activity{},
		NextSetID:      1,
		NextActivityID: 1,
	}
	if err := s.write(doc); err != nil {
		return nil, err
	}
	log.Debugf("file store created: %s", path)
	return s, nil
}

func (s *FileStore) read() (*fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	// documents written by older versions carry no id counters
	var maxSetID int64
	for _, l := range doc.DailyLogs {
		for _, set := range l.Sets {
			maxSetID = max(maxSetID, set.ID)
		}
	}
	doc.NextSetID = max(doc.NextSetID, maxSetID+1)
	var maxActivityID int64
	for _, a := range doc.Activities {
		maxActivityID = max(maxActivityID, a.ID)
	}
	doc.NextActivityID = max(doc.NextActivityID, maxActivityID+1)

	return &doc, nil
}

func (s *FileStore) write(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (d *fileDocument) snapshot() *fitness.Snapshot {
	return &fitness.Snapshot{
		User:           d.User,
		DailyLogs:      d.DailyLogs,
		WorkoutHistory: d.WorkoutHistory,
	}
}

// mutate runs a read-modify-write cycle on the document.
func (s *FileStore) mutate(fn func(doc *fileDocument, snap *fitness.Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	snap := doc.snapshot()
	if err := fn(doc, snap); err != nil {
		return err
	}
	snap.Reconcile()
	doc.User = snap.User
	doc.DailyLogs = snap.DailyLogs
	doc.WorkoutHistory = snap.WorkoutHistory
	return s.write(doc)
}

func (s *FileStore) Snapshot(ctx context.Context) (_ *fitness.Snapshot, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.file.snapshot")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mu.Lock()
	doc, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	snap := doc.snapshot()
	res := fitness.BuildSnapshot(snap.User, snap.DailyLogs, snap.AllSets())
	// keep hand-edited or imported history entries that have no sets behind them
	for name, entry := range doc.WorkoutHistory {
		if _, ok := res.WorkoutHistory[name]; !ok {
			res.WorkoutHistory[name] = entry
		}
	}
	return finishSnapshot(res), nil
}

func (s *FileStore) UpdateUser(ctx context.Context, patch fitness.UserPatch) (_ *fitness.User, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.file.update_user")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var user fitness.User
	err = s.mutate(func(_ *fileDocument, snap *fitness.Snapshot) error {
		snap.ApplyUserPatch(patch)
		user = snap.User
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *FileStore) UpsertFoodLog(ctx context.Context, date, foodLog string) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.file.upsert_food_log")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("date", date))

	return s.mutate(func(_ *fileDocument, snap *fitness.Snapshot) error {
		snap.ApplyFoodLog(date, foodLog)
		return nil
	})
}

func (s *FileStore) AddNutrition(ctx context.Context, date string, calories, protein int) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.file.add_nutrition")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("date", date))

	return s.mutate(func(_ *fileDocument, snap *fitness.Snapshot) error {
		snap.ApplyNutrition(date, calories, protein)
		return nil
	})
}

func (s *FileStore) InsertSet(ctx context.Context, set fitness.WorkoutSet) (_ *fitness.WorkoutSet, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.file.insert_set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if set.CreatedAt.IsZero() {
		set.CreatedAt = s.now().UTC()
	}
	err = s.mutate(func(doc *fileDocument, snap *fitness.Snapshot) error {
		set.ID = doc.NextSetID
		doc.NextSetID++
		snap.ApplyWorkoutSet(set)
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("set.id", set.ID))
	return &set, nil
}

func (s *FileStore) DeleteSet(ctx context.Context, id int64) (_ *fitness.WorkoutSet, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.file.delete_set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("set.id", id))

	var removed fitness.WorkoutSet
	err = s.mutate(func(_ *fileDocument, snap *fitness.Snapshot) error {
		set, ok := snap.RemoveSet(id)
		if !ok {
			return ErrSetNotFound
		}
		removed = set
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

func (s *FileStore) AddActivity(ctx context.Context, activity fitness.Activity) (_ *fitness.Activity, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.file.add_activity")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.now().UTC()
	}
	err = s.mutate(func(doc *fileDocument, _ *fitness.Snapshot) error {
		activity.ID = doc.NextActivityID
		doc.NextActivityID++
		doc.Activities = append(doc.Activities, activity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *FileStore) ListActivities(ctx context.Context) (_ []fitness.Activity, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "store.file.list_activities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mu.Lock()
	doc, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	activities := make([]fitness.Activity, 0, len(doc.Activities))
	for i := len(doc.Activities) - 1; i >= 0; i-- {
		activities = append(activities, doc.Activities[i])
	}
	return activities, nil
}

func (s *FileStore) Close() error {
	return nil
}
