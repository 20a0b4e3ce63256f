package fitness

import "time"

type Stats struct {
	Workouts       int `json:"workouts"`
	CaloriesBurned int `json:"caloriesBurned"`
	Streak         int `json:"streak"`
	LongestStreak  int `json:"longestStreak"`
	ActiveMinutes  int `json:"activeMinutes"`
	JourneyDay     int `json:"journeyDay"`
}

// ComputeStats summarizes the snapshot and the logged activities. A workout is a
// day with a completed workout or a logged activity; one day counts once.
func ComputeStats(s *Snapshot, activities []Activity, now time.Time) Stats {
	stats := Stats{
		Streak:        s.User.Streak,
		LongestStreak: s.User.LongestStreak,
		JourneyDay:    s.User.JourneyDay(now),
	}

	days := make(map[string]bool)
	for _, l := range s.DailyLogs {
		if l.WorkoutCompleted {
			days[l.Date] = true
		}
	}
	for _, a := range activities {
		stats.CaloriesBurned += a.Calories
		stats.ActiveMinutes += a.DurationMinutes
		days[a.Date] = true
	}
	stats.Workouts = len(days)

	return stats
}
