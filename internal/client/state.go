package client

//go:generate mockgen -source=$GOFILE -destination=state_mocks_test.go -package=client_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/2beens/fittrack/internal/fitness"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	defaultRequestTimeout = 15 * time.Second
	errorsBufferSize      = 32
)

var ErrClosed = errors.New("state closed")

// Backend is the part of the API the state store writes through.
type Backend interface {
	Snapshot(ctx context.Context) (*fitness.Snapshot, error)
	LogWorkout(ctx context.Context, set fitness.WorkoutSet) (int64, error)
	DeleteSet(ctx context.Context, id int64) error
	UpdateFoodLog(ctx context.Context, date, foodLog string) error
	UpdateNutrition(ctx context.Context, date string, calories, protein int) error
	UpdateUser(ctx context.Context, patch fitness.UserPatch) (*fitness.User, error)
}

// CommandError reports a mutation the server refused. Its local change has been rolled back.
type CommandError struct {
	CommandID uuid.UUID
	Kind      string
	Err       error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s [%s] rolled back: %s", e.Kind, e.CommandID, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

type command struct {
	id   uuid.UUID
	kind string
	// setID is the set a log-set created or a delete-set removes
	setID int64
	// apply changes the snapshot the way the server is expected to
	apply func(s *fitness.Snapshot)
	// send writes the change through. The returned fold moves the server's answer
	// into the confirmed snapshot; it runs with the state lock held.
	send func(ctx context.Context, b Backend) (fold func(st *State), err error)
}

// State holds the snapshot shown to the user. Mutations change it at once and are
// queued for a single worker that sends them to the server in order. The visible
// snapshot is always the confirmed one with the pending commands replayed on top.
type State struct {
	backend        Backend
	requestTimeout time.Duration

	// held by the worker while a command is on the wire and by Load while it fetches,
	// so a loaded snapshot never already contains a command that is still pending
	inFlight sync.Mutex

	mu              sync.Mutex
	confirmed       *fitness.Snapshot
	visible         *fitness.Snapshot
	pending         []*command
	nextPlaceholder int64
	drained         chan struct{}
	closed          bool

	wake   chan struct{}
	errs   chan error
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewState(backend Backend) *State {
	ctx, cancel := context.WithCancel(context.Background())
	st := &State{
		backend:         backend,
		requestTimeout:  defaultRequestTimeout,
		confirmed:       fitness.NewSnapshot(fitness.User{}),
		visible:         fitness.NewSnapshot(fitness.User{}),
		nextPlaceholder: -1,
		drained:         make(chan struct{}),
		wake:            make(chan struct{}, 1),
		errs:            make(chan error, errorsBufferSize),
		ctx:             ctx,
		cancel:          cancel,
	}

	st.wg.Add(1)
	go st.worker()

	return st
}

// Load replaces the confirmed snapshot with a fresh one from the server.
// It waits for a command being sent to finish; pending commands are replayed on top.
func (st *State) Load(ctx context.Context) error {
	st.inFlight.Lock()
	defer st.inFlight.Unlock()

	snapshot, err := st.backend.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.confirmed = snapshot
	st.rebuild()
	return nil
}

// Snapshot returns a copy of what the user should see.
func (st *State) Snapshot() *fitness.Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.visible.Clone()
}

func (st *State) Pending() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.pending)
}

// Errors delivers the failures of queued commands. Errors are dropped when nobody reads them.
func (st *State) Errors() <-chan error {
	return st.errs
}

// LogSet records a set locally under a negative placeholder id and queues it.
// The placeholder is swapped for the server id once the server confirms.
func (st *State) LogSet(date, exerciseName string, reps int, weight float64) (fitness.WorkoutSet, error) {
	exerciseName = strings.TrimSpace(exerciseName)
	if exerciseName == "" {
		return fitness.WorkoutSet{}, errors.New("exercise name required")
	}
	if reps <= 0 {
		return fitness.WorkoutSet{}, errors.New("reps must be positive")
	}
	if weight < 0 {
		return fitness.WorkoutSet{}, errors.New("weight must not be negative")
	}
	if _, err := fitness.ParseDate(date); err != nil {
		return fitness.WorkoutSet{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return fitness.WorkoutSet{}, ErrClosed
	}

	set := fitness.WorkoutSet{
		ID:           st.nextPlaceholder,
		Date:         date,
		ExerciseName: exerciseName,
		Reps:         reps,
		Weight:       weight,
		CreatedAt:    time.Now().UTC(),
	}
	st.nextPlaceholder--

	st.enqueue(&command{
		id:    uuid.New(),
		kind:  "log-set",
		setID: set.ID,
		apply: func(s *fitness.Snapshot) {
			s.ApplyWorkoutSet(set)
		},
		send: func(ctx context.Context, b Backend) (func(*State), error) {
			id, err := b.LogWorkout(ctx, set)
			if err != nil {
				return nil, err
			}
			return func(st *State) {
				st.confirmSet(set, id)
			}, nil
		},
	})

	return set, nil
}

// DeleteSet removes a set, confirmed or still pending.
func (st *State) DeleteSet(id int64) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return ErrClosed
	}
	if !hasSet(st.visible, id) {
		return fmt.Errorf("set %d not found", id)
	}

	c := &command{id: uuid.New(), kind: "delete-set", setID: id}
	c.apply = func(s *fitness.Snapshot) {
		s.RemoveSet(c.setID)
	}
	c.send = func(ctx context.Context, b Backend) (func(*State), error) {
		// still a placeholder: its log-set failed and there is nothing to delete remotely
		if c.setID < 0 {
			return func(*State) {}, nil
		}
		if err := b.DeleteSet(ctx, c.setID); err != nil {
			return nil, err
		}
		return func(st *State) {
			st.confirmed.RemoveSet(c.setID)
		}, nil
	}
	st.enqueue(c)
	return nil
}

func (st *State) SetFoodLog(date, foodLog string) error {
	if _, err := fitness.ParseDate(date); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return ErrClosed
	}

	st.enqueue(&command{
		id:   uuid.New(),
		kind: "food-log",
		apply: func(s *fitness.Snapshot) {
			s.ApplyFoodLog(date, foodLog)
		},
		send: func(ctx context.Context, b Backend) (func(*State), error) {
			if err := b.UpdateFoodLog(ctx, date, foodLog); err != nil {
				return nil, err
			}
			return func(st *State) {
				st.confirmed.ApplyFoodLog(date, foodLog)
			}, nil
		},
	})
	return nil
}

// AddNutrition adds calorie and protein deltas to the day's totals.
func (st *State) AddNutrition(date string, calories, protein int) error {
	if _, err := fitness.ParseDate(date); err != nil {
		return err
	}
	if calories == 0 && protein == 0 {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return ErrClosed
	}

	st.enqueue(&command{
		id:   uuid.New(),
		kind: "nutrition",
		apply: func(s *fitness.Snapshot) {
			s.ApplyNutrition(date, calories, protein)
		},
		send: func(ctx context.Context, b Backend) (func(*State), error) {
			if err := b.UpdateNutrition(ctx, date, calories, protein); err != nil {
				return nil, err
			}
			return func(st *State) {
				st.confirmed.ApplyNutrition(date, calories, protein)
			}, nil
		},
	})
	return nil
}

func (st *State) UpdateUser(patch fitness.UserPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return ErrClosed
	}

	st.enqueue(&command{
		id:   uuid.New(),
		kind: "update-user",
		apply: func(s *fitness.Snapshot) {
			s.ApplyUserPatch(patch)
		},
		send: func(ctx context.Context, b Backend) (func(*State), error) {
			user, err := b.UpdateUser(ctx, patch)
			if err != nil {
				return nil, err
			}
			return func(st *State) {
				st.confirmed.User = *user
				st.rebuild()
			}, nil
		},
	})
	return nil
}

// Flush waits until every queued command has been sent.
func (st *State) Flush(ctx context.Context) error {
	for {
		st.mu.Lock()
		if len(st.pending) == 0 {
			st.mu.Unlock()
			return nil
		}
		if st.closed {
			st.mu.Unlock()
			return ErrClosed
		}
		drained := st.drained
		st.mu.Unlock()

		select {
		case <-drained:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the worker. Commands still queued are abandoned.
func (st *State) Close() {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return
	}
	st.closed = true
	close(st.drained)
	st.mu.Unlock()

	st.cancel()
	st.wg.Wait()
}

// enqueue must be called with mu held.
func (st *State) enqueue(c *command) {
	c.apply(st.visible)
	st.pending = append(st.pending, c)
	select {
	case st.wake <- struct{}{}:
	default:
	}
}

// rebuild must be called with mu held.
func (st *State) rebuild() {
	st.visible = st.confirmed.Clone()
	for _, c := range st.pending {
		c.apply(st.visible)
	}
}

// confirmSet folds a confirmed set into the confirmed snapshot and swaps its
// placeholder id everywhere for the server one.
func (st *State) confirmSet(set fitness.WorkoutSet, id int64) {
	placeholder := set.ID
	set.ID = id
	st.confirmed.ApplyWorkoutSet(set)
	st.visible.ReplaceSetID(placeholder, id)
	for _, c := range st.pending {
		if c.setID == placeholder {
			c.setID = id
		}
	}
}

func (st *State) worker() {
	defer st.wg.Done()

	for {
		st.mu.Lock()
		if st.closed {
			st.mu.Unlock()
			return
		}
		if len(st.pending) == 0 {
			st.mu.Unlock()
			select {
			case <-st.wake:
				continue
			case <-st.ctx.Done():
				return
			}
		}
		st.mu.Unlock()

		if !st.sendNext() {
			return
		}
	}
}

// sendNext sends the head of the queue and folds the answer in. It reports false
// once the state is closed.
func (st *State) sendNext() bool {
	st.inFlight.Lock()
	defer st.inFlight.Unlock()

	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return false
	}
	// only the worker pops, so the queue is still non-empty
	c := st.pending[0]
	st.mu.Unlock()

	ctx, cancel := context.WithTimeout(st.ctx, st.requestTimeout)
	fold, err := c.send(ctx, st.backend)
	cancel()

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return false
	}
	st.pending = st.pending[1:]
	if err == nil {
		fold(st)
		log.Tracef("command %s [%s] confirmed", c.kind, c.id)
	} else {
		log.Errorf("command %s [%s] failed: %s", c.kind, c.id, err)
		st.rebuild()
		st.report(&CommandError{CommandID: c.id, Kind: c.kind, Err: err})
	}
	if len(st.pending) == 0 {
		close(st.drained)
		st.drained = make(chan struct{})
	}
	return true
}

func (st *State) report(err error) {
	select {
	case st.errs <- err:
	default:
		log.Warnf("errors channel full, dropping: %s", err)
	}
}

func hasSet(s *fitness.Snapshot, id int64) bool {
	for _, l := range s.DailyLogs {
		for _, set := range l.Sets {
			if set.ID == id {
				return true
			}
		}
	}
	return false
}
