package fitness

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

type User struct {
	Name          string  `json:"name"`
	Weight        float64 `json:"weight"`
	Streak        int     `json:"streak"`
	LongestStreak int     `json:"longestStreak"`
	CalorieTarget int     `json:"calorieTarget"`
	ProteinTarget int     `json:"proteinTarget"`
	StartDate     string  `json:"startDate"`
}

// UserPatch carries a partial user update. Nil fields are left untouched.
// Streaks are computed from the logs and cannot be patched.
type UserPatch struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Weight        *float64 `json:"weight,omitempty" validate:"omitempty,gt=0,lt=1000"`
	CalorieTarget *int     `json:"calorieTarget,omitempty" validate:"omitempty,gte=0,lte=20000"`
	ProteinTarget *int     `json:"proteinTarget,omitempty" validate:"omitempty,gte=0,lte=2000"`
	StartDate     *string  `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Weight == nil && p.CalorieTarget == nil && p.ProteinTarget == nil && p.StartDate == nil
}

func (u *User) Apply(p UserPatch) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Weight != nil {
		u.Weight = *p.Weight
	}
	if p.CalorieTarget != nil {
		u.CalorieTarget = *p.CalorieTarget
	}
	if p.ProteinTarget != nil {
		u.ProteinTarget = *p.ProteinTarget
	}
	if p.StartDate != nil {
		u.StartDate = *p.StartDate
	}
}

// JourneyDay is the 1-based number of the day now falls on, counted from the start date.
// Zero when the start date is unset, malformed or in the future.
func (u User) JourneyDay(now time.Time) int {
	start, err := ParseDate(u.StartDate)
	if err != nil {
		return 0
	}
	today := DateOf(now)
	if today.Before(start) {
		return 0
	}
	return DaysBetween(start, today) + 1
}

type WorkoutSet struct {
	ID           int64     `json:"id"`
	Date         string    `json:"date"`
	ExerciseName string    `json:"exercise_name"`
	Reps         int       `json:"reps"`
	Weight       float64   `json:"weight"`
	CreatedAt    time.Time `json:"created_at"`
}

type DailyLog struct {
	Date             string       `json:"date"`
	FoodLog          string       `json:"foodLog"`
	Calories         int          `json:"calories"`
	Protein          int          `json:"protein"`
	WorkoutCompleted bool         `json:"workoutCompleted"`
	Exercises        []string     `json:"exercises"`
	Sets             []WorkoutSet `json:"sets"`
}

type HistoryEntry struct {
	LastReps   int     `json:"lastReps"`
	LastWeight float64 `json:"lastWeight"`
}

// WorkoutHistory maps an exercise name to its most recently logged set.
type WorkoutHistory map[string]HistoryEntry

type Snapshot struct {
	User           User           `json:"user"`
	DailyLogs      []DailyLog     `json:"dailyLogs"`
	WorkoutHistory WorkoutHistory `json:"workoutHistory"`
}

type Activity struct {
	ID              int64     `json:"id"`
	Date            string    `json:"date"`
	Type            string    `json:"type"`
	DurationMinutes int       `json:"duration"`
	Calories        int       `json:"calories"`
	CreatedAt       time.Time `json:"created_at"`
}

// ParseDate parses a YYYY-MM-DD calendar date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOf drops the clock part of t, keeping its calendar day in t's location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}
