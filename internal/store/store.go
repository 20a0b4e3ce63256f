// Package store persists the single user's profile, daily logs, workout sets and activities.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/fitness"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var (
	ErrSetNotFound    = errors.New("workout set not found")
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Store is the persistence boundary of the service. Every backend keeps at most
// one daily log per date and assigns monotonic set ids.
type Store interface {
	// Snapshot returns the canonical state with derived fields reconciled.
	Snapshot(ctx context.Context) (*fitness.Snapshot, error)
	UpdateUser(ctx context.Context, patch fitness.UserPatch) (*fitness.User, error)
	UpsertFoodLog(ctx context.Context, date, foodLog string) error
	// AddNutrition adds the deltas to the day's totals, never going below zero.
	AddNutrition(ctx context.Context, date string, calories, protein int) error
	InsertSet(ctx context.Context, set fitness.WorkoutSet) (*fitness.WorkoutSet, error)
	DeleteSet(ctx context.Context, id int64) (*fitness.WorkoutSet, error)
	AddActivity(ctx context.Context, activity fitness.Activity) (*fitness.Activity, error)
	// ListActivities returns the activities newest first.
	ListActivities(ctx context.Context) ([]fitness.Activity, error)
	Close() error
}

// MetricsProvider is implemented by backends exposing their own prometheus collector.
type MetricsProvider interface {
	MetricsCollector() prometheus.Collector
}

// MetricsCollector returns the backend collector, or nil when there is none.
func MetricsCollector(s Store) prometheus.Collector {
	if p, ok := s.(MetricsProvider); ok {
		return p.MetricsCollector()
	}
	return nil
}

type Params struct {
	Backend        string
	SQLitePath     string
	DataFilePath   string
	BadgerPath     string
	PostgresHost   string
	PostgresPort   string
	PostgresDBName string
	TracingEnabled bool
}

func ParamsFromConfig(cfg *config.Config, tracingEnabled bool) Params {
	return Params{
		Backend:        cfg.StorageBackend,
		SQLitePath:     cfg.SQLitePath,
		DataFilePath:   cfg.DataFilePath,
		BadgerPath:     cfg.BadgerPath,
		PostgresHost:   cfg.PostgresHost,
		PostgresPort:   cfg.PostgresPort,
		PostgresDBName: cfg.PostgresDBName,
		TracingEnabled: tracingEnabled,
	}
}

// Open creates the configured backend and seeds the user on first use.
func Open(ctx context.Context, params Params) (Store, error) {
	log.Debugf("opening %s store", params.Backend)
	switch params.Backend {
	case config.BackendSQLite:
		return NewSQLiteStore(ctx, params.SQLitePath)
	case config.BackendPostgres:
		return NewPostgresStore(ctx, PostgresParams{
			Host:           params.PostgresHost,
			Port:           params.PostgresPort,
			DBName:         params.PostgresDBName,
			TracingEnabled: params.TracingEnabled,
		})
	case config.BackendBadger:
		return NewBadgerStore(BadgerConfig{Path: params.BadgerPath, SyncWrites: true})
	case config.BackendFile:
		return NewFileStore(params.DataFilePath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, params.Backend)
	}
}

// DefaultUser is the profile seeded on first open.
func DefaultUser(now time.Time) fitness.User {
	return fitness.User{
		Name:          "Hardgainer",
		Weight:        67,
		CalorieTarget: 2800,
		ProteinTarget: 140,
		StartDate:     fitness.FormatDate(now),
	}
}

func finishSnapshot(s *fitness.Snapshot) *fitness.Snapshot {
	s.RefreshStreaks(fitness.DefaultStreakOptions())
	return s
}
