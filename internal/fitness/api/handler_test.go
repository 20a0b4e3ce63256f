package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/2beens/fittrack/internal/cache"
	"github.com/2beens/fittrack/internal/fitness"
	"github.com/2beens/fittrack/internal/fitness/api"
	"github.com/2beens/fittrack/internal/store"
	"github.com/2beens/fittrack/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// Saturday
var testNow = time.Date(2024, time.January, 6, 18, 0, 0, 0, time.UTC)

type testEnv struct {
	handler        *api.Handler
	store          store.Store
	metricsManager *metrics.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "fittrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	metricsManager := metrics.NewTestManager()
	handler := api.NewHandler(st, cache.NewMemoryCache(), metricsManager, "admin")
	handler.SetNow(func() time.Time { return testNow })

	return &testEnv{
		handler:        handler,
		store:          st,
		metricsManager: metricsManager,
	}
}

func doJSON(t *testing.T, h http.HandlerFunc, method, path string, body any, vars map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			reqBody.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Content-Type", "application/json")
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func (env *testEnv) getData(t *testing.T) fitness.Snapshot {
	t.Helper()
	rr := doJSON(t, env.handler.HandleGetData, http.MethodGet, "/api/data", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var snapshot fitness.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	return snapshot
}

func findLog(snapshot fitness.Snapshot, date string) (fitness.DailyLog, bool) {
	for _, l := range snapshot.DailyLogs {
		if l.Date == date {
			return l, true
		}
	}
	return fitness.DailyLog{}, false
}

func countLogs(snapshot fitness.Snapshot, date string) int {
	n := 0
	for _, l := range snapshot.DailyLogs {
		if l.Date == date {
			n++
		}
	}
	return n
}

func TestHandler_GetData_Seeded(t *testing.T) {
	env := newTestEnv(t)

	snapshot := env.getData(t)
	assert.Equal(t, "Hardgainer", snapshot.User.Name)
	assert.Equal(t, 2800, snapshot.User.CalorieTarget)
	assert.Empty(t, snapshot.DailyLogs)
	assert.Empty(t, snapshot.WorkoutHistory)
}

func TestHandler_LogWorkout(t *testing.T) {
	env := newTestEnv(t)

	rr := doJSON(t, env.handler.HandleLogWorkout, http.MethodPost, "/api/log-workout", map[string]any{
		"exercise": "Pushups",
		"reps":     12,
		"weight":   0,
		"date":     "2024-01-05",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.LogWorkoutResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Positive(t, resp.ID)

	snapshot := env.getData(t)
	assert.Equal(t, fitness.HistoryEntry{LastReps: 12, LastWeight: 0}, snapshot.WorkoutHistory["Pushups"])
	log, ok := findLog(snapshot, "2024-01-05")
	require.True(t, ok)
	assert.True(t, log.WorkoutCompleted)
	assert.Contains(t, log.Exercises, "Pushups")
	require.Len(t, log.Sets, 1)
	assert.Equal(t, resp.ID, log.Sets[0].ID)
	assert.Equal(t, 1, snapshot.User.Streak)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metricsManager.CounterSetsLogged))
}

func TestHandler_LogWorkout_Validation(t *testing.T) {
	env := newTestEnv(t)

	testCases := []struct {
		name string
		body any
	}{
		{name: "malformed", body: `{"exercise":`},
		{name: "missing exercise", body: map[string]any{"reps": 10}},
		{name: "zero reps", body: map[string]any{"exercise": "Pushups", "reps": 0}},
		{name: "negative reps", body: map[string]any{"exercise": "Pushups", "reps": -3}},
		{name: "negative weight", body: map[string]any{"exercise": "Pushups", "reps": 3, "weight": -1}},
		{name: "bad date", body: map[string]any{"exercise": "Pushups", "reps": 3, "date": "05.01.2024"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, env.handler.HandleLogWorkout, http.MethodPost, "/api/log-workout", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}

	assert.Empty(t, env.getData(t).DailyLogs)
}

func TestHandler_LogWorkout_DefaultsToToday(t *testing.T) {
	env := newTestEnv(t)

	rr := doJSON(t, env.handler.HandleLogWorkout, http.MethodPost, "/api/log-workout", map[string]any{
		"exercise": "Plank",
		"reps":     1,
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	_, ok := findLog(env.getData(t), "2024-01-06")
	assert.True(t, ok)
}

func TestHandler_UpdateFoodLog(t *testing.T) {
	env := newTestEnv(t)

	for _, text := range []string{"eggs, toast", "oats, milk, banana"} {
		rr := doJSON(t, env.handler.HandleUpdateFoodLog, http.MethodPost, "/api/update-food-log", map[string]any{
			"foodLog": text,
			"date":    "2024-01-05",
		}, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	}

	snapshot := env.getData(t)
	assert.Equal(t, 1, countLogs(snapshot, "2024-01-05"))
	log, _ := findLog(snapshot, "2024-01-05")
	assert.Equal(t, "oats, milk, banana", log.FoodLog)
	assert.False(t, log.WorkoutCompleted)
	assert.Equal(t, float64(2), testutil.ToFloat64(env.metricsManager.CounterFoodLogUpdates))
}

func TestHandler_UpdateNutrition(t *testing.T) {
	env := newTestEnv(t)

	deltas := []map[string]any{
		{"calories": 600, "protein": 40, "date": "2024-01-05"},
		{"calories": 450, "protein": 35, "date": "2024-01-05"},
		{"calories": -2000, "protein": 10, "date": "2024-01-05"},
	}
	for _, d := range deltas {
		rr := doJSON(t, env.handler.HandleUpdateNutrition, http.MethodPost, "/api/update-nutrition", d, nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	log, ok := findLog(env.getData(t), "2024-01-05")
	require.True(t, ok)
	assert.Equal(t, 0, log.Calories)
	assert.Equal(t, 85, log.Protein)
}

func TestHandler_DeleteSet(t *testing.T) {
	env := newTestEnv(t)

	var ids []int64
	for _, ex := range []string{"Pushups", "Door Rows"} {
		rr := doJSON(t, env.handler.HandleLogWorkout, http.MethodPost, "/api/log-workout", map[string]any{
			"exercise": ex,
			"reps":     10,
			"date":     "2024-01-05",
		}, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp api.LogWorkoutResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		ids = append(ids, resp.ID)
	}

	rr := doJSON(t, env.handler.HandleDeleteSet, http.MethodDelete, "/api/sets/abc", nil, map[string]string{"id": "abc"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = doJSON(t, env.handler.HandleDeleteSet, http.MethodDelete, "/api/sets/9999", nil, map[string]string{"id": "9999"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	deleteSet := func(id int64) {
		idStr := strconv.FormatInt(id, 10)
		rr := doJSON(t, env.handler.HandleDeleteSet, http.MethodDelete, "/api/sets/"+idStr, nil, map[string]string{"id": idStr})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	}

	deleteSet(ids[0])
	log, _ := findLog(env.getData(t), "2024-01-05")
	assert.True(t, log.WorkoutCompleted)
	assert.Equal(t, []string{"Door Rows"}, log.Exercises)

	deleteSet(ids[1])
	snapshot := env.getData(t)
	log, ok := findLog(snapshot, "2024-01-05")
	require.True(t, ok)
	assert.False(t, log.WorkoutCompleted)
	assert.Empty(t, log.Exercises)
	assert.Empty(t, log.Sets)
	assert.Empty(t, snapshot.WorkoutHistory)
	assert.Equal(t, 0, snapshot.User.Streak)
	assert.Equal(t, float64(2), testutil.ToFloat64(env.metricsManager.CounterSetsDeleted))
}

func TestHandler_UpdateUser(t *testing.T) {
	env := newTestEnv(t)

	rr := doJSON(t, env.handler.HandleUpdateUser, http.MethodPost, "/api/update-user", map[string]any{
		"name":          "Lean Machine",
		"weight":        70.5,
		"calorieTarget": 3000,
		"streak":        99,
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp api.UpdateUserResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Lean Machine", resp.User.Name)
	assert.Equal(t, 70.5, resp.User.Weight)
	assert.Equal(t, 3000, resp.User.CalorieTarget)
	assert.Equal(t, 140, resp.User.ProteinTarget)
	// streak is derived from the logs
	assert.Equal(t, 0, resp.User.Streak)

	assert.Equal(t, "Lean Machine", env.getData(t).User.Name)

	rr = doJSON(t, env.handler.HandleUpdateUser, http.MethodPost, "/api/update-user", map[string]any{"weight": -4}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = doJSON(t, env.handler.HandleUpdateUser, http.MethodPost, "/api/update-user", map[string]any{"startDate": "yesterday"}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_SnapshotCache(t *testing.T) {
	env := newTestEnv(t)

	env.getData(t)
	env.getData(t)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metricsManager.CounterSnapshotCacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metricsManager.CounterSnapshotCacheHits))

	rr := doJSON(t, env.handler.HandleUpdateFoodLog, http.MethodPost, "/api/update-food-log", map[string]any{
		"foodLog": "rice",
		"date":    "2024-01-06",
	}, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	// the write dropped the cached snapshot
	log, ok := findLog(env.getData(t), "2024-01-06")
	require.True(t, ok)
	assert.Equal(t, "rice", log.FoodLog)
	assert.Equal(t, float64(2), testutil.ToFloat64(env.metricsManager.CounterSnapshotCacheMisses))
}

// writeDuringSnapshot runs write once, right after the wrapped store has read its snapshot.
type writeDuringSnapshot struct {
	store.Store
	write func()
}

func (s *writeDuringSnapshot) Snapshot(ctx context.Context) (*fitness.Snapshot, error) {
	snapshot, err := s.Store.Snapshot(ctx)
	if write := s.write; write != nil {
		s.write = nil
		write()
	}
	return snapshot, err
}

func TestHandler_SnapshotCache_WriteDuringRead(t *testing.T) {
	st, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "fittrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	wrapped := &writeDuringSnapshot{Store: st}
	metricsManager := metrics.NewTestManager()
	handler := api.NewHandler(wrapped, cache.NewMemoryCache(), metricsManager, "admin")
	handler.SetNow(func() time.Time { return testNow })

	wrapped.write = func() {
		rr := doJSON(t, handler.HandleUpdateFoodLog, http.MethodPost, "/api/update-food-log", map[string]any{
			"foodLog": "eggs",
			"date":    "2024-01-05",
		}, nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	// read before the write landed
	rr := doJSON(t, handler.HandleGetData, http.MethodGet, "/api/data", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stale fitness.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stale))
	assert.Equal(t, 0, countLogs(stale, "2024-01-05"))

	rr = doJSON(t, handler.HandleGetData, http.MethodGet, "/api/data", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var fresh fitness.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &fresh))
	require.Equal(t, 1, countLogs(fresh, "2024-01-05"))
	log, _ := findLog(fresh, "2024-01-05")
	assert.Equal(t, "eggs", log.FoodLog)
	assert.Equal(t, float64(2), testutil.ToFloat64(metricsManager.CounterSnapshotCacheMisses))
	assert.Equal(t, float64(0), testutil.ToFloat64(metricsManager.CounterSnapshotCacheHits))

	// nothing raced this time, so it is cached
	rr = doJSON(t, handler.HandleGetData, http.MethodGet, "/api/data", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterSnapshotCacheHits))
}

func TestHandler_Activities(t *testing.T) {
	env := newTestEnv(t)

	rr := doJSON(t, env.handler.HandleListActivities, http.MethodGet, "/api/activities", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = doJSON(t, env.handler.HandleAddActivity, http.MethodPost, "/api/activities", map[string]any{"duration": 30}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Type and duration required"}`, rr.Body.String())
	rr = doJSON(t, env.handler.HandleAddActivity, http.MethodPost, "/api/activities", map[string]any{"type": "Running"}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	for _, a := range []map[string]any{
		{"type": "Running", "duration": 45, "calories": 450, "date": "2024-01-04"},
		{"type": "Yoga", "duration": 30},
	} {
		rr = doJSON(t, env.handler.HandleAddActivity, http.MethodPost, "/api/activities", a, nil)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr = doJSON(t, env.handler.HandleListActivities, http.MethodGet, "/api/activities", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var activities []fitness.Activity
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &activities))
	require.Len(t, activities, 2)
	assert.Equal(t, "Yoga", activities[0].Type)
	assert.Equal(t, "2024-01-06", activities[0].Date)
	assert.Equal(t, 0, activities[0].Calories)
	assert.Equal(t, "Running", activities[1].Type)
	assert.Equal(t, float64(2), testutil.ToFloat64(env.metricsManager.CounterActivities))
}

func TestHandler_AddActivity_DurationForms(t *testing.T) {
	testCases := []struct {
		name            string
		duration        any
		expectedStatus  int
		expectedMinutes int
	}{
		{name: "Minutes", duration: 45, expectedStatus: http.StatusCreated, expectedMinutes: 45},
		{name: "MinutesString", duration: "45", expectedStatus: http.StatusCreated, expectedMinutes: 45},
		{name: "DurationString", duration: "45m", expectedStatus: http.StatusCreated, expectedMinutes: 45},
		{name: "HoursAndMinutes", duration: "1h30m", expectedStatus: http.StatusCreated, expectedMinutes: 90},
		{name: "Garbage", duration: "a while", expectedStatus: http.StatusBadRequest},
		{name: "TooLong", duration: "25h", expectedStatus: http.StatusBadRequest},
		{name: "UnderAMinute", duration: "30s", expectedStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := doJSON(t, env.handler.HandleAddActivity, http.MethodPost, "/api/activities", map[string]any{
				"type":     "Running",
				"duration": tc.duration,
			}, nil)
			require.Equal(t, tc.expectedStatus, rr.Code, rr.Body.String())
			if tc.expectedStatus != http.StatusCreated {
				return
			}

			var added fitness.Activity
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
			assert.Equal(t, tc.expectedMinutes, added.DurationMinutes)
		})
	}
}

func TestHandler_Stats(t *testing.T) {
	env := newTestEnv(t)

	for _, date := range []string{"2024-01-04", "2024-01-05"} {
		rr := doJSON(t, env.handler.HandleLogWorkout, http.MethodPost, "/api/log-workout", map[string]any{
			"exercise": "Glute Bridges",
			"reps":     20,
			"date":     date,
		}, nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := doJSON(t, env.handler.HandleAddActivity, http.MethodPost, "/api/activities", map[string]any{
		"type":     "Running",
		"duration": 40,
		"calories": 380,
		"date":     "2024-01-05",
	}, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = doJSON(t, env.handler.HandleGetStats, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var stats fitness.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Workouts)
	assert.Equal(t, 380, stats.CaloriesBurned)
	assert.Equal(t, 40, stats.ActiveMinutes)
	assert.Equal(t, 2, stats.Streak)
	assert.Equal(t, 2, stats.LongestStreak)
}

func TestHandler_GetUser(t *testing.T) {
	env := newTestEnv(t)
	rr := doJSON(t, env.handler.HandleGetUser, http.MethodGet, "/api/user", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user":{"username":"admin"}}`, rr.Body.String())
}

func TestHandler_DatabaseErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := NewMockfitnessStore(ctrl)
	handler := api.NewHandler(mockStore, cache.NewMemoryCache(), metrics.NewTestManager(), "admin")

	dbErr := errors.New("disk I/O error")
	mockStore.EXPECT().Snapshot(gomock.Any()).Return(nil, dbErr).AnyTimes()
	mockStore.EXPECT().UpsertFoodLog(gomock.Any(), "2024-01-05", "eggs").Return(dbErr)
	mockStore.EXPECT().AddNutrition(gomock.Any(), "2024-01-05", 100, 10).Return(dbErr)
	mockStore.EXPECT().InsertSet(gomock.Any(), gomock.Any()).Return(nil, dbErr)
	mockStore.EXPECT().DeleteSet(gomock.Any(), int64(3)).Return(nil, dbErr)
	mockStore.EXPECT().ListActivities(gomock.Any()).Return(nil, dbErr)
	mockStore.EXPECT().AddActivity(gomock.Any(), gomock.Any()).Return(nil, dbErr)

	testCases := []struct {
		name string
		h    http.HandlerFunc
		body any
		vars map[string]string
	}{
		{name: "data", h: handler.HandleGetData},
		{name: "food log", h: handler.HandleUpdateFoodLog, body: map[string]any{"foodLog": "eggs", "date": "2024-01-05"}},
		{name: "nutrition", h: handler.HandleUpdateNutrition, body: map[string]any{"calories": 100, "protein": 10, "date": "2024-01-05"}},
		{name: "log workout", h: handler.HandleLogWorkout, body: map[string]any{"exercise": "Plank", "reps": 1}},
		{name: "delete set", h: handler.HandleDeleteSet, vars: map[string]string{"id": "3"}},
		{name: "activities", h: handler.HandleListActivities},
		{name: "new activity", h: handler.HandleAddActivity, body: map[string]any{"type": "Yoga", "duration": 20}},
		{name: "calendar", h: handler.HandleCalendar, vars: map[string]string{"year": "2024", "month": "1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, tc.h, http.MethodPost, "/", tc.body, tc.vars)
			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.JSONEq(t, `{"error":"Database error"}`, rr.Body.String())
		})
	}
}

func TestHandler_SetNotFoundIsNotADatabaseError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := NewMockfitnessStore(ctrl)
	handler := api.NewHandler(mockStore, nil, metrics.NewTestManager(), "admin")

	mockStore.EXPECT().DeleteSet(gomock.Any(), int64(7)).Return(nil, store.ErrSetNotFound)
	rr := doJSON(t, handler.HandleDeleteSet, http.MethodDelete, "/api/sets/7", nil, map[string]string{"id": "7"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
