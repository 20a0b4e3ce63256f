package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fittrack/internal/fitness"
	"github.com/2beens/fittrack/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchemaFS embed.FS

const adminUsername = "admin"

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer; keeps upserts serialized
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.seedUser(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Debugf("sqlite store ready: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema, err := sqliteSchemaFS.ReadFile("sqlite_schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) seedUser(ctx context.Context) error {
	now := s.now()
	u := DefaultUser(now)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (id, username, name, weight, calorie_target, protein_target, start_date, created_at)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
		adminUsername, u.Name, u.Weight, u.CalorieTarget, u.ProteinTarget, u.StartDate, formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Snapshot(ctx context.Context) (_ *fitness.Snapshot, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.sqlite.snapshot")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := s.getUser(ctx, s.db)
	if err != nil {
		return nil, err
	}

	logs, err := s.listLogs(ctx)
	if err != nil {
		return nil, err
	}

	sets, err := s.listSets(ctx)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("logs", len(logs)), attribute.Int("sets", len(sets)))
	return finishSnapshot(fitness.BuildSnapshot(*user, logs, sets)), nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) getUser(ctx context.Context, q queryer) (*fitness.User, error) {
	var u fitness.User
	err := q.QueryRowContext(
		ctx,
		`SELECT name, weight, calorie_target, protein_target, start_date FROM users WHERE id = 1`,
	).Scan(&u.Name, &u.Weight, &u.CalorieTarget, &u.ProteinTarget, &u.StartDate)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) listLogs(ctx context.Context) ([]fitness.DailyLog, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, food_log, calories, protein FROM daily_logs ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("query daily logs: %w", err)
	}
	defer rows.Close()

	var logs []fitness.DailyLog
	for rows.Next() {
		var l fitness.DailyLog
		if err := rows.Scan(&l.Date, &l.FoodLog, &l.Calories, &l.Protein); err != nil {
			return nil, fmt.Errorf("scan daily log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) listSets(ctx context.Context) ([]fitness.WorkoutSet, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, date, exercise_name, reps, weight, created_at FROM workout_sets ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query workout sets: %w", err)
	}
	defer rows.Close()

	var sets []fitness.WorkoutSet
	for rows.Next() {
		var (
			set       fitness.WorkoutSet
			createdAt string
		)
		if err := rows.Scan(&set.ID, &set.Date, &set.ExerciseName, &set.Reps, &set.Weight, &createdAt); err != nil {
			return nil, fmt.Errorf("scan workout set: %w", err)
		}
		set.CreatedAt = parseTime(createdAt)
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, patch fitness.UserPatch) (_ *fitness.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.sqlite.update_user")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	u, err := s.getUser(ctx, tx)
	if err != nil {
		return nil, err
	}
	u.Apply(patch)

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE users SET name = ?, weight = ?, calorie_target = ?, protein_target = ?, start_date = ? WHERE id = 1`,
		u.Name, u.Weight, u.CalorieTarget, u.ProteinTarget, u.StartDate,
	); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) UpsertFoodLog(ctx context.Context, date, foodLog string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.sqlite.upsert_food_log")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("date", date))

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO daily_logs (date, food_log) VALUES (?, ?)
			ON CONFLICT(date) DO UPDATE SET food_log = excluded.food_log`,
		date, foodLog,
	)
	if err != nil {
		return fmt.Errorf("upsert food log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) AddNutrition(ctx context.Context, date string, calories, protein int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.sqlite.add_nutrition")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("date", date))

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO daily_logs (date, calories, protein) VALUES (?, max(0, ?), max(0, ?))
			ON CONFLICT(date) DO UPDATE SET
				calories = max(0, daily_logs.calories + ?),
				protein = max(0, daily_logs.protein + ?)`,
		date, calories, protein, calories, protein,
	)
	if err != nil {
		return fmt.Errorf("add nutrition: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertSet(ctx context.Context, set fitness.WorkoutSet) (_ *fitness.WorkoutSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.sqlite.insert_set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if set.CreatedAt.IsZero() {
		set.CreatedAt = s.now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO daily_logs (date) VALUES (?) ON CONFLICT(date) DO NOTHING`,
		set.Date,
	); err != nil {
		return nil, fmt.Errorf("ensure daily log: %w", err)
	}

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO workout_sets (date, exercise_name, reps, weight, created_at) VALUES (?, ?, ?, ?, ?)`,
		set.Date, set.ExerciseName, set.Reps, set.Weight, formatTime(set.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert workout set: %w", err)
	}
	if set.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	span.SetAttributes(attribute.Int64("set.id", set.ID))
	return &set, nil
}

func (s *SQLiteStore) DeleteSet(ctx context.Context, id int64) (_ *fitness.WorkoutSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.sqlite.delete_set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("set.id", id))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		set       fitness.WorkoutSet
		createdAt string
	)
	err = tx.QueryRowContext(
		ctx,
		`SELECT id, date, exercise_name, reps, weight, created_at FROM workout_sets WHERE id = ?`,
		id,
	).Scan(&set.ID, &set.Date, &set.ExerciseName, &set.Reps, &set.Weight, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workout set: %w", err)
	}
	set.CreatedAt = parseTime(createdAt)

	if _, err := tx.ExecContext(ctx, `DELETE FROM workout_sets WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete workout set: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &set, nil
}

func (s *SQLiteStore) AddActivity(ctx context.Context, activity fitness.Activity) (_ *fitness.Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.sqlite.add_activity")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = s.now().UTC()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO activities (date, type, duration_minutes, calories, created_at) VALUES (?, ?, ?, ?, ?)`,
		activity.Date, activity.Type, activity.DurationMinutes, activity.Calories, formatTime(activity.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	if activity.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &activity, nil
}

func (s *SQLiteStore) ListActivities(ctx context.Context) (_ []fitness.Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "store.sqlite.list_activities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, date, type, duration_minutes, calories, created_at FROM activities ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	activities := []fitness.Activity{}
	for rows.Next() {
		var (
			a         fitness.Activity
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Date, &a.Type, &a.DurationMinutes, &a.Calories, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		log.Tracef("unparsable timestamp %q: %s", s, err)
		return time.Time{}
	}
	return t
}
