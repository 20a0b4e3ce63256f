package fitness

import (
	"math"
	"sort"
)

// NewSnapshot returns an empty snapshot for the user with non-nil collections.
func NewSnapshot(user User) *Snapshot {
	return &Snapshot{
		User:           user,
		DailyLogs:      []DailyLog{},
		WorkoutHistory: WorkoutHistory{},
	}
}

func newDailyLog(date string) DailyLog {
	return DailyLog{
		Date:      date,
		Exercises: []string{},
		Sets:      []WorkoutSet{},
	}
}

// FindLog returns the log for the date, if there is one.
// The pointer is only valid until the next append to DailyLogs.
func (s *Snapshot) FindLog(date string) (*DailyLog, bool) {
	for i := range s.DailyLogs {
		if s.DailyLogs[i].Date == date {
			return &s.DailyLogs[i], true
		}
	}
	return nil, false
}

// FindOrCreateLog returns the single log for the date, appending an empty one when missing.
func (s *Snapshot) FindOrCreateLog(date string) *DailyLog {
	if l, ok := s.FindLog(date); ok {
		return l
	}
	s.DailyLogs = append(s.DailyLogs, newDailyLog(date))
	return &s.DailyLogs[len(s.DailyLogs)-1]
}

func (s *Snapshot) ApplyFoodLog(date, foodLog string) {
	s.FindOrCreateLog(date).FoodLog = foodLog
}

// ApplyNutrition adds the deltas to the day's totals. Totals never go below zero.
func (s *Snapshot) ApplyNutrition(date string, calories, protein int) {
	l := s.FindOrCreateLog(date)
	l.Calories = max(0, l.Calories+calories)
	l.Protein = max(0, l.Protein+protein)
}

func (s *Snapshot) ApplyWorkoutSet(set WorkoutSet) {
	if s.WorkoutHistory == nil {
		s.WorkoutHistory = WorkoutHistory{}
	}
	s.WorkoutHistory[set.ExerciseName] = HistoryEntry{LastReps: set.Reps, LastWeight: set.Weight}

	l := s.FindOrCreateLog(set.Date)
	l.Sets = append(l.Sets, set)
	l.Reconcile()
}

// RemoveSet drops the set with the id from whichever day owns it.
// The history entry of its exercise falls back to the latest remaining set.
func (s *Snapshot) RemoveSet(id int64) (WorkoutSet, bool) {
	for i := range s.DailyLogs {
		l := &s.DailyLogs[i]
		for j, set := range l.Sets {
			if set.ID != id {
				continue
			}
			l.Sets = append(l.Sets[:j:j], l.Sets[j+1:]...)
			l.Reconcile()
			s.refreshHistoryEntry(set.ExerciseName)
			return set, true
		}
	}
	return WorkoutSet{}, false
}

// ReplaceSetID swaps a placeholder id for the one the server assigned.
func (s *Snapshot) ReplaceSetID(oldID, newID int64) bool {
	for i := range s.DailyLogs {
		for j := range s.DailyLogs[i].Sets {
			if s.DailyLogs[i].Sets[j].ID == oldID {
				s.DailyLogs[i].Sets[j].ID = newID
				return true
			}
		}
	}
	return false
}

func (s *Snapshot) ApplyUserPatch(p UserPatch) {
	s.User.Apply(p)
}

// Reconcile recomputes the derived fields of every log from its sets.
func (s *Snapshot) Reconcile() {
	if s.DailyLogs == nil {
		s.DailyLogs = []DailyLog{}
	}
	if s.WorkoutHistory == nil {
		s.WorkoutHistory = WorkoutHistory{}
	}
	for i := range s.DailyLogs {
		s.DailyLogs[i].Reconcile()
	}
}

// SortLogs orders the logs by date, oldest first.
func (s *Snapshot) SortLogs() {
	sort.SliceStable(s.DailyLogs, func(i, j int) bool {
		return s.DailyLogs[i].Date < s.DailyLogs[j].Date
	})
}

// AllSets returns every set of the snapshot in insertion order.
func (s *Snapshot) AllSets() []WorkoutSet {
	var sets []WorkoutSet
	for _, l := range s.DailyLogs {
		sets = append(sets, l.Sets...)
	}
	sort.SliceStable(sets, func(i, j int) bool {
		return insertionKey(sets[i].ID) < insertionKey(sets[j].ID)
	})
	return sets
}

func (s *Snapshot) refreshHistoryEntry(exerciseName string) {
	var (
		latest WorkoutSet
		found  bool
	)
	for _, l := range s.DailyLogs {
		for _, set := range l.Sets {
			if set.ExerciseName != exerciseName {
				continue
			}
			if !found || insertionKey(set.ID) > insertionKey(latest.ID) {
				latest, found = set, true
			}
		}
	}
	if !found {
		delete(s.WorkoutHistory, exerciseName)
		return
	}
	s.WorkoutHistory[exerciseName] = HistoryEntry{LastReps: latest.Reps, LastWeight: latest.Weight}
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		User:           s.User,
		DailyLogs:      make([]DailyLog, len(s.DailyLogs)),
		WorkoutHistory: make(WorkoutHistory, len(s.WorkoutHistory)),
	}
	for i, l := range s.DailyLogs {
		c.DailyLogs[i] = l.Clone()
	}
	for k, v := range s.WorkoutHistory {
		c.WorkoutHistory[k] = v
	}
	return c
}

func (l DailyLog) Clone() DailyLog {
	c := l
	c.Exercises = append([]string{}, l.Exercises...)
	c.Sets = append([]WorkoutSet{}, l.Sets...)
	return c
}

// Reconcile derives workoutCompleted and exercises from the sets.
func (l *DailyLog) Reconcile() {
	if l.Sets == nil {
		l.Sets = []WorkoutSet{}
	}
	l.WorkoutCompleted = len(l.Sets) > 0
	l.Exercises = make([]string, 0, len(l.Sets))
	seen := make(map[string]bool, len(l.Sets))
	for _, set := range l.Sets {
		if seen[set.ExerciseName] {
			continue
		}
		seen[set.ExerciseName] = true
		l.Exercises = append(l.Exercises, set.ExerciseName)
	}
}

// BuildSnapshot assembles a snapshot from stored rows. Sets are attached to the log
// of their date, creating one when the date has no log row. Sets must be in insertion order.
func BuildSnapshot(user User, logs []DailyLog, sets []WorkoutSet) *Snapshot {
	s := NewSnapshot(user)
	for _, l := range logs {
		l.Sets = nil
		s.DailyLogs = append(s.DailyLogs, l)
	}
	for _, set := range sets {
		l := s.FindOrCreateLog(set.Date)
		l.Sets = append(l.Sets, set)
	}
	s.Reconcile()
	s.SortLogs()
	s.WorkoutHistory = DeriveHistory(sets)
	return s
}

// DeriveHistory keeps the last set per exercise name, in the order given.
func DeriveHistory(sets []WorkoutSet) WorkoutHistory {
	h := make(WorkoutHistory)
	for _, set := range sets {
		h[set.ExerciseName] = HistoryEntry{LastReps: set.Reps, LastWeight: set.Weight}
	}
	return h
}

// insertionKey orders set ids by creation. Placeholder ids are negative, assigned
// -1, -2, ... and always newer than any server id.
func insertionKey(id int64) int64 {
	if id < 0 {
		return math.MaxInt64/2 - id
	}
	return id
}
