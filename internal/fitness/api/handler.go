// Package api serves the fitness JSON API consumed by the web page and the terminal client.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/cache"
	"github.com/2beens/fittrack/internal/fitness"
	"github.com/2beens/fittrack/internal/store"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=api_test

type fitnessStore interface {
	Snapshot(ctx context.Context) (*fitness.Snapshot, error)
	UpdateUser(ctx context.Context, patch fitness.UserPatch) (*fitness.User, error)
	UpsertFoodLog(ctx context.Context, date, foodLog string) error
	AddNutrition(ctx context.Context, date string, calories, protein int) error
	InsertSet(ctx context.Context, set fitness.WorkoutSet) (*fitness.WorkoutSet, error)
	DeleteSet(ctx context.Context, id int64) (*fitness.WorkoutSet, error)
	AddActivity(ctx context.Context, activity fitness.Activity) (*fitness.Activity, error)
	ListActivities(ctx context.Context) ([]fitness.Activity, error)
}

const (
	snapshotCacheKey = "snapshot"
	errDatabase      = "Database error"
)

type FoodLogRequest struct {
	FoodLog string `json:"foodLog" validate:"max=20000"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type NutritionRequest struct {
	Calories int    `json:"calories" validate:"gte=-20000,lte=20000"`
	Protein  int    `json:"protein" validate:"gte=-2000,lte=2000"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type LogWorkoutRequest struct {
	Exercise string  `json:"exercise" validate:"required,max=100"`
	Reps     int     `json:"reps" validate:"required,gt=0,lte=10000"`
	Weight   float64 `json:"weight" validate:"gte=0,lt=10000"`
	Date     string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type ActivityRequest struct {
	Type     string          `json:"type" validate:"required,max=100"`
	Duration ActivityMinutes `json:"duration" validate:"required,gt=0,lte=1440"`
	Calories int             `json:"calories" validate:"gte=0,lte=20000"`
	Date     string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ActivityMinutes decodes a duration given either as minutes (45, "45")
// or as a duration string ("45m", "1h30m").
type ActivityMinutes int

func (m *ActivityMinutes) UnmarshalJSON(data []byte) error {
	var minutes int
	if err := json.Unmarshal(data, &minutes); err == nil {
		*m = ActivityMinutes(minutes)
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("duration must be a number or a string: %w", err)
	}
	text = strings.TrimSpace(text)
	if minutes, err := strconv.Atoi(text); err == nil {
		*m = ActivityMinutes(minutes)
		return nil
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("parse duration [%s]: %w", text, err)
	}
	*m = ActivityMinutes(d / time.Minute)
	return nil
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type LogWorkoutResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

type UpdateUserResponse struct {
	Success bool         `json:"success"`
	User    fitness.User `json:"user"`
}

type SessionUser struct {
	Username string `json:"username"`
}

type UserResponse struct {
	User SessionUser `json:"user"`
}

type Handler struct {
	store          fitnessStore
	snapshotCache  cache.Cache
	metricsManager *metrics.Manager
	username       string
	validate       *validator.Validate
	now            func() time.Time

	// bumped by every write; a snapshot read under an older generation is not cached
	cacheMutex      sync.Mutex
	cacheGeneration uint64
}

func NewHandler(
	repo fitnessStore,
	snapshotCache cache.Cache,
	metricsManager *metrics.Manager,
	username string,
) *Handler {
	return &Handler{
		store:          repo,
		snapshotCache:  snapshotCache,
		metricsManager: metricsManager,
		username:       username,
		validate:       validator.New(),
		now:            time.Now,
	}
}

// decode reads a JSON body into req and validates it, writing a 400 when either fails.
func (handler *Handler) decode(w http.ResponseWriter, r *http.Request, op string, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Debugf("%s, unmarshal json params: %s", op, err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := handler.validate.Struct(req); err != nil {
		log.Tracef("%s, invalid request: %s", op, err)
		pkg.WriteJSONError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		if fe.Tag() == "required" {
			return fe.Field() + " is required"
		}
		return "Invalid " + fe.Field()
	}
	return "Invalid request"
}

func (handler *Handler) dateOrToday(date string) string {
	if date == "" {
		return fitness.FormatDate(handler.now())
	}
	return date
}

func (handler *Handler) invalidateSnapshot() {
	if handler.snapshotCache == nil {
		return
	}
	handler.cacheMutex.Lock()
	defer handler.cacheMutex.Unlock()
	handler.cacheGeneration++
	handler.snapshotCache.Clear()
}

func (handler *Handler) snapshotGeneration() uint64 {
	handler.cacheMutex.Lock()
	defer handler.cacheMutex.Unlock()
	return handler.cacheGeneration
}

// cacheSnapshot stores snapshotJson unless a write landed after it was read at generation.
func (handler *Handler) cacheSnapshot(generation uint64, snapshotJson []byte) {
	handler.cacheMutex.Lock()
	defer handler.cacheMutex.Unlock()
	if generation != handler.cacheGeneration {
		log.Debugf("get data, snapshot changed while reading, not cached")
		return
	}
	handler.snapshotCache.Set(snapshotCacheKey, snapshotJson)
}

func (handler *Handler) HandleGetData(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.fitness.data")
	defer span.End()

	if handler.snapshotCache != nil {
		if cached, ok := handler.snapshotCache.Get(snapshotCacheKey); ok {
			handler.metricsManager.CounterSnapshotCacheHits.Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cached)
			return
		}
		handler.metricsManager.CounterSnapshotCacheMisses.Inc()
	}

	generation := handler.snapshotGeneration()
	snapshot, err := handler.store.Snapshot(ctx)
	if err != nil {
		log.Errorf("get data, snapshot: %s", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot")
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}

	snapshotJson, err := json.Marshal(snapshot)
	if err != nil {
		log.Errorf("failed to marshal snapshot: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if handler.snapshotCache != nil {
		handler.cacheSnapshot(generation, snapshotJson)
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, snapshotJson)
}

func (handler *Handler) HandleUpdateFoodLog(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.fitness.foodLog")
	defer span.End()

	var req FoodLogRequest
	if !handler.decode(w, r, "update food log", &req) {
		return
	}
	date := handler.dateOrToday(req.Date)
	span.SetAttributes(attribute.String("date", date))

	if err := handler.store.UpsertFoodLog(ctx, date, req.FoodLog); err != nil {
		log.Errorf("failed to update food log [%s]: %s", date, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert")
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}

	handler.invalidateSnapshot()
	handler.metricsManager.CounterFoodLogUpdates.Inc()
	log.Debugf("food log updated: [%s]", date)
	pkg.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (handler *Handler) HandleUpdateNutrition(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.fitness.nutrition")
	defer span.End()

	var req NutritionRequest
	if !handler.decode(w, r, "update nutrition", &req) {
		return
	}
	date := handler.dateOrToday(req.Date)
	span.SetAttributes(
		attribute.String("date", date),
		attribute.Int("calories", req.Calories),
		attribute.Int("protein", req.Protein),
	)

	if err := handler.store.AddNutrition(ctx, date, req.Calories, req.Protein); err != nil {
		log.Errorf("failed to update nutrition [%s]: %s", date, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "add-nutrition")
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}

	handler.invalidateSnapshot()
	handler.metricsManager.CounterNutritionUpdates.Inc()
	pkg.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (handler *Handler) HandleLogWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.fitness.logWorkout")
	defer span.End()

	var req LogWorkoutRequest
	if !handler.decode(w, r, "log workout", &req) {
		return
	}

	set := fitness.WorkoutSet{
		Date:         handler.dateOrToday(req.Date),
		ExerciseName: req.Exercise,
		Reps:         req.Reps,
		Weight:       req.Weight,
		CreatedAt:    handler.now(),
	}
	span.SetAttributes(
		attribute.String("date", set.Date),
		attribute.String("exercise", set.ExerciseName),
	)

	added, err := handler.store.InsertSet(ctx, set)
	if err != nil {
		log.Errorf("failed to log workout set [%s] [%s]: %s", set.Date, set.ExerciseName, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert-set")
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}

	handler.invalidateSnapshot()
	handler.metricsManager.CounterSetsLogged.Inc()
	log.Debugf("workout set logged: [%s] [%s] %dx%.1f: %d", added.Date, added.ExerciseName, added.Reps, added.Weight, added.ID)
	pkg.WriteJSON(w, http.StatusOK, LogWorkoutResponse{Success: true, ID: added.ID})
}

func (handler *Handler) HandleDeleteSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.fitness.deleteSet")
	defer span.End()

	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid set id")
		return
	}
	span.SetAttributes(attribute.Int64("set.id", id))

	if _, err := handler.store.DeleteSet(ctx, id); err != nil {
		if errors.Is(err, store.ErrSetNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "Set not found")
			return
		}
		log.Errorf("failed to delete set %d: %s", id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete-set")
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}

	handler.invalidateSnapshot()
	handler.metricsManager.CounterSetsDeleted.Inc()
	pkg.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (handler *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.fitness.updateUser")
	defer span.End()

	var patch fitness.UserPatch
	if !handler.decode(w, r, "update user", &patch) {
		return
	}

	if !patch.IsEmpty() {
		if _, err := handler.store.UpdateUser(ctx, patch); err != nil {
			log.Errorf("failed to update user: %s", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "update-user")
			pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
			return
		}
		handler.invalidateSnapshot()
	}

	// the snapshot carries the recomputed streaks
	snapshot, err := handler.store.Snapshot(ctx)
	if err != nil {
		log.Errorf("update user, snapshot: %s", err)
		span.RecordError(err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, UpdateUserResponse{Success: true, User: snapshot.User})
}

func (handler *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSON(w, http.StatusOK, UserResponse{
		User: SessionUser{Username: handler.username},
	})
}

func (handler *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.fitness.stats")
	defer span.End()

	snapshot, err := handler.store.Snapshot(ctx)
	if err != nil {
		log.Errorf("stats, snapshot: %s", err)
		span.RecordError(err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}
	activities, err := handler.store.ListActivities(ctx)
	if err != nil {
		log.Errorf("stats, list activities: %s", err)
		span.RecordError(err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, fitness.ComputeStats(snapshot, activities, handler.now()))
}

func (handler *Handler) HandleListActivities(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.fitness.activities")
	defer span.End()

	activities, err := handler.store.ListActivities(ctx)
	if err != nil {
		log.Errorf("list activities: %s", err)
		span.RecordError(err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}
	if activities == nil {
		activities = []fitness.Activity{}
	}

	pkg.WriteJSON(w, http.StatusOK, activities)
}

func (handler *Handler) HandleAddActivity(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.fitness.newActivity")
	defer span.End()

	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Debugf("new activity, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Type == "" || req.Duration == 0 {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Type and duration required")
		return
	}
	if err := handler.validate.Struct(req); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	added, err := handler.store.AddActivity(ctx, fitness.Activity{
		Date:            handler.dateOrToday(req.Date),
		Type:            req.Type,
		DurationMinutes: int(req.Duration),
		Calories:        req.Calories,
		CreatedAt:       handler.now(),
	})
	if err != nil {
		log.Errorf("failed to add activity [%s]: %s", req.Type, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "add-activity")
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}

	handler.metricsManager.CounterActivities.Inc()
	pkg.WriteJSON(w, http.StatusCreated, added)
}
