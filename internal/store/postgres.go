package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fittrack/internal/db"
	"github.com/2beens/fittrack/internal/fitness"
	"github.com/2beens/fittrack/internal/telemetry/tracing"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed postgres_schema.sql
var postgresSchema string

type PostgresParams struct {
	Host           string
	Port           string
	DBName         string
	User           string
	Password       string
	TracingEnabled bool
}

type PostgresStore struct {
	db        *pgxpool.Pool
	collector *pgxpoolprometheus.Collector
	now       func() time.Time
}

var (
	_ Store           = (*PostgresStore)(nil)
	_ MetricsProvider = (*PostgresStore)(nil)
)

func NewPostgresStore(ctx context.Context, params PostgresParams) (*PostgresStore, error) {
	pool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Host,
		DBPort:         params.Port,
		DBName:         params.DBName,
		DBUser:         params.User,
		DBPassword:     params.Password,
		TracingEnabled: params.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &PostgresStore{
		db: pool,
		collector: pgxpoolprometheus.NewCollector(
			pool,
			map[string]string{"db_name": params.DBName},
		),
		now: time.Now,
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if err := s.seedUser(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Debugf("postgres store ready: %s:%s/%s", params.Host, params.Port, params.DBName)
	return s, nil
}

func (s *PostgresStore) seedUser(ctx context.Context) error {
	now := s.now()
	u := DefaultUser(now)
	if _, err := s.db.Exec(
		ctx,
		`INSERT INTO users (id, username, name, weight, calorie_target, protein_target, start_date, created_at)
			VALUES (1, $1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
		adminUsername, u.Name, u.Weight, u.CalorieTarget, u.ProteinTarget, u.StartDate, now,
	); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	return nil
}

func (s *PostgresStore) MetricsCollector() prometheus.Collector {
	return s.collector
}

func (s *PostgresStore) Snapshot(ctx context.Context) (_ *fitness.Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.snapshot")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := getPostgresUser(ctx, s.db)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `SELECT date, food_log, calories, protein FROM daily_logs ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("query daily logs: %w", err)
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (fitness.DailyLog, error) {
		var l fitness.DailyLog
		err := row.Scan(&l.Date, &l.FoodLog, &l.Calories, &l.Protein)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect daily logs: %w", err)
	}

	rows, err = s.db.Query(
		ctx,
		`SELECT id, date, exercise_name, reps, weight, created_at FROM workout_sets ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query workout sets: %w", err)
	}
	sets, err := pgx.CollectRows(rows, scanPostgresSet)
	if err != nil {
		return nil, fmt.Errorf("collect workout sets: %w", err)
	}

	span.SetAttributes(attribute.Int("logs", len(logs)), attribute.Int("sets", len(sets)))
	return finishSnapshot(fitness.BuildSnapshot(*user, logs, sets)), nil
}

func scanPostgresSet(row pgx.CollectableRow) (fitness.WorkoutSet, error) {
	var set fitness.WorkoutSet
	err := row.Scan(&set.ID, &set.Date, &set.ExerciseName, &set.Reps, &set.Weight, &set.CreatedAt)
	set.CreatedAt = set.CreatedAt.UTC()
	return set, err
}

type pgQueryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getPostgresUser(ctx context.Context, q pgQueryRower) (*fitness.User, error) {
	var u fitness.User
	err := q.QueryRow(
		ctx,
		`SELECT name, weight, calorie_target, protein_target, start_date FROM users WHERE id = 1`,
	).Scan(&u.Name, &u.Weight, &u.CalorieTarget, &u.ProteinTarget, &u.StartDate)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, patch fitness.UserPatch) (_ *fitness.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.update_user")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	u, err := getPostgresUser(ctx, tx)
	if err != nil {
		return nil, err
	}
	u.Apply(patch)

	if _, err := tx.Exec(
		ctx,
		`UPDATE users SET name = $1, weight = $2, calorie_target = $3, protein_target = $4, start_date = $5 WHERE id = 1`,
		u.Name, u.Weight, u.CalorieTarget, u.ProteinTarget, u.StartDate,
	); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpsertFoodLog(ctx context.Context, date, foodLog string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.upsert_food_log")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("date", date))

	if _, err := s.db.Exec(
		ctx,
		`INSERT INTO daily_logs (date, food_log) VALUES ($1, $2)
			ON CONFLICT (date) DO UPDATE SET food_log = EXCLUDED.food_log`,
		date, foodLog,
	); err != nil {
		return fmt.Errorf("upsert food log: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddNutrition(ctx context.Context, date string, calories, protein int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.add_nutrition")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("date", date))

	if _, err := s.db.Exec(
		ctx,
		`INSERT INTO daily_logs (date, calories, protein) VALUES ($1, GREATEST(0, $2::int), GREATEST(0, $3::int))
			ON CONFLICT (date) DO UPDATE SET
				calories = GREATEST(0, daily_logs.calories + $2::int),
				protein = GREATEST(0, daily_logs.protein + $3::int)`,
		date, calories, protein,
	); err != nil {
		return fmt.Errorf("add nutrition: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertSet(ctx context.Context, set fitness.WorkoutSet) (_ *fitness.WorkoutSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.insert_set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if set.CreatedAt.IsZero() {
		set.CreatedAt = s.now().UTC()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO daily_logs (date) VALUES ($1) ON CONFLICT (date) DO NOTHING`,
		set.Date,
	); err != nil {
		return nil, fmt.Errorf("ensure daily log: %w", err)
	}

	if err := tx.QueryRow(
		ctx,
		`INSERT INTO workout_sets (date, exercise_name, reps, weight, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
		set.Date, set.ExerciseName, set.Reps, set.Weight, set.CreatedAt,
	).Scan(&set.ID); err != nil {
		return nil, fmt.Errorf("insert workout set: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	span.SetAttributes(attribute.Int64("set.id", set.ID))
	return &set, nil
}

func (s *PostgresStore) DeleteSet(ctx context.Context, id int64) (_ *fitness.WorkoutSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.delete_set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("set.id", id))

	rows, err := s.db.Query(
		ctx,
		`DELETE FROM workout_sets WHERE id = $1
			RETURNING id, date, exercise_name, reps, weight, created_at`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("delete workout set: %w", err)
	}
	set, err := pgx.CollectExactlyOneRow(rows, scanPostgresSet)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("collect deleted set: %w", err)
	}
	return &set, nil
}

func (s *PostgresStore) AddActivity(ctx context.Context, activity fitness.Activity) (_ *fitness.Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.add_activity")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.now().UTC()
	}

	if err := s.db.QueryRow(
		ctx,
		`INSERT INTO activities (date, type, duration_minutes, calories, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
		activity.Date, activity.Type, activity.DurationMinutes, activity.Calories, activity.CreatedAt,
	).Scan(&activity.ID); err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	return &activity, nil
}

func (s *PostgresStore) ListActivities(ctx context.Context) (_ []fitness.Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.postgres.list_activities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := s.db.Query(
		ctx,
		`SELECT id, date, type, duration_minutes, calories, created_at FROM activities ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	activities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (fitness.Activity, error) {
		var a fitness.Activity
		err := row.Scan(&a.ID, &a.Date, &a.Type, &a.DurationMinutes, &a.Calories, &a.CreatedAt)
		a.CreatedAt = a.CreatedAt.UTC()
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect activities: %w", err)
	}
	if activities == nil {
		activities = []fitness.Activity{}
	}
	return activities, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
