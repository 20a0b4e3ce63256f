// Package routine holds the static weekly training plan and the form cues for its exercises.
package routine

import "time"

const (
	TypeBodyweight = "BW"
	TypeDumbbell   = "DB"
)

type Exercise struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight,omitempty"`
}

type Routine struct {
	Name      string     `json:"name"`
	Exercises []Exercise `json:"exercises"`
}

// IsRestDay is true for routines with nothing to train.
func (r Routine) IsRestDay() bool {
	return len(r.Exercises) == 0
}

var restAndEat = Routine{Name: "Rest & Eat", Exercises: []Exercise{}}

// indexed by time.Weekday, 0 = Sunday
var weekly = [7]Routine{
	restAndEat,
	{
		Name: "Upper Body A",
		Exercises: []Exercise{
			{ID: "pushups", Name: "Pushups", Target: "Failure", Type: TypeBodyweight},
			{ID: "door_rows", Name: "Door Rows", Target: "3 x 12", Type: TypeBodyweight},
			{ID: "lateral_raises", Name: "DB Lateral Raises", Target: "4 x 25", Type: TypeDumbbell, Weight: 2},
			{ID: "bicep_curls", Name: "DB Bicep Curls", Target: "3 x 25", Type: TypeDumbbell, Weight: 2},
		},
	},
	{
		Name: "Lower Body A",
		Exercises: []Exercise{
			{ID: "split_squats", Name: "Bulgarian Split Squats", Target: "3 x 10/leg", Type: TypeBodyweight},
			{ID: "bw_squats", Name: "Bodyweight Squats", Target: "3 x 30", Type: TypeBodyweight},
			{ID: "calf_raises", Name: "DB Calf Raises", Target: "4 x 40", Type: TypeDumbbell, Weight: 2},
			{ID: "plank", Name: "Plank", Target: "3 x 60s", Type: TypeBodyweight},
		},
	},
	{Name: "Active Recovery", Exercises: []Exercise{}},
	{
		Name: "Upper Body B",
		Exercises: []Exercise{
			{ID: "pike_pushups", Name: "Pike Pushups", Target: "3 x 8-12", Type: TypeBodyweight},
			{ID: "diamond_pushups", Name: "Diamond Pushups", Target: "3 x Failure", Type: TypeBodyweight},
			{ID: "front_raises", Name: "DB Front Raises", Target: "3 x 20", Type: TypeDumbbell, Weight: 2},
			{ID: "overhead_extensions", Name: "DB Overhead Extensions", Target: "3 x 20", Type: TypeDumbbell, Weight: 2},
		},
	},
	{
		Name: "Lower Body B",
		Exercises: []Exercise{
			{ID: "glute_bridges", Name: "Glute Bridges", Target: "3 x 15", Type: TypeBodyweight},
			{ID: "reverse_lunges", Name: "Reverse Lunges", Target: "3 x 15/leg", Type: TypeBodyweight},
			{ID: "side_lunges", Name: "Side Lunges", Target: "3 x 12/leg", Type: TypeBodyweight},
			{ID: "leg_raises", Name: "Leg Raises", Target: "3 x 15", Type: TypeBodyweight},
		},
	},
	restAndEat,
}

// ForDayOfWeek returns the routine for day (0 = Sunday .. 6 = Saturday).
// Days outside that range get the rest day routine.
func ForDayOfWeek(day int) Routine {
	if day < 0 || day >= len(weekly) {
		return restAndEat
	}
	return clone(weekly[day])
}

func ForDate(date time.Time) Routine {
	return ForDayOfWeek(int(date.Weekday()))
}

// IsRestDay reports whether nothing is scheduled on the date's weekday.
func IsRestDay(date time.Time) bool {
	return weekly[date.Weekday()].IsRestDay()
}

// AllExercises lists every scheduled exercise once, in weekly order.
func AllExercises() []Exercise {
	var all []Exercise
	seen := make(map[string]bool)
	for _, r := range weekly {
		for _, ex := range r.Exercises {
			if seen[ex.ID] {
				continue
			}
			seen[ex.ID] = true
			all = append(all, ex)
		}
	}
	return all
}

func clone(r Routine) Routine {
	exercises := make([]Exercise, len(r.Exercises))
	copy(exercises, r.Exercises)
	return Routine{Name: r.Name, Exercises: exercises}
}
