package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyDocument = `{
  "user": {"name": "Hardgainer", "weight": 67, "streak": 3, "calorieTarget": 2800, "proteinTarget": 140, "startDate": "2024-01-01"},
  "dailyLogs": [
    {"date": "2024-01-02", "foodLog": "eggs", "workoutCompleted": true, "exercises": ["Pushups", "Door Rows"],
     "sets": [{"id": 4, "date": "2024-01-02", "exercise_name": "Pushups", "reps": 10, "weight": 0}]}
  ],
  "workoutHistory": {"Pushups": {"lastReps": 10, "lastWeight": 0}, "Door Rows": {"lastReps": 12, "lastWeight": 0}}
}`

func TestFileStore_LegacyDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyDocument), 0o644))

	s, err := NewFileStore(path)
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.DailyLogs, 1)
	assert.Equal(t, []string{"Pushups"}, snap.DailyLogs[0].Exercises)
	assert.Equal(t, 12, snap.WorkoutHistory["Door Rows"].LastReps)
	assert.Equal(t, 1, snap.User.Streak, "streak is recomputed")

	set, err := s.InsertSet(ctx, snap.DailyLogs[0].Sets[0])
	require.NoError(t, err)
	assert.Equal(t, int64(5), set.ID)
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "data.json"))
	require.NoError(t, err)
	require.NoError(t, s.UpsertFoodLog(context.Background(), "2024-01-05", "eggs"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.json", entries[0].Name())
}
