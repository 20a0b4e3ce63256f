package fitness

import (
	"time"

	"github.com/2beens/fittrack/internal/fitness/routine"
)

type StreakOptions struct {
	// SkipRestDays lets days with nothing scheduled pass without breaking the streak.
	SkipRestDays bool
	IsRestDay    func(date time.Time) bool
}

// DefaultStreakOptions skips the rest days of the weekly routine.
func DefaultStreakOptions() StreakOptions {
	return StreakOptions{
		SkipRestDays: true,
		IsRestDay:    routine.IsRestDay,
	}
}

func (o StreakOptions) skip(date time.Time) bool {
	return o.SkipRestDays && o.IsRestDay != nil && o.IsRestDay(date)
}

// ComputeStreak counts consecutive days with a completed workout, walking back from
// the most recent log and stopping at the first day without one. Days with no log
// count as days without a workout. Logs with malformed dates are ignored.
func ComputeStreak(logs []DailyLog, opts StreakOptions) int {
	byDate, first, last, ok := indexLogs(logs)
	if !ok {
		return 0
	}

	streak := 0
	for day := last; !day.Before(first); day = day.AddDate(0, 0, -1) {
		l, found := byDate[FormatDate(day)]
		switch {
		case found && l.WorkoutCompleted:
			streak++
		case opts.skip(day):
		default:
			return streak
		}
	}
	return streak
}

// LongestStreak is the longest run ComputeStreak could have reported at any point.
func LongestStreak(logs []DailyLog, opts StreakOptions) int {
	byDate, first, last, ok := indexLogs(logs)
	if !ok {
		return 0
	}

	longest, current := 0, 0
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		l, found := byDate[FormatDate(day)]
		switch {
		case found && l.WorkoutCompleted:
			current++
			longest = max(longest, current)
		case opts.skip(day):
		default:
			current = 0
		}
	}
	return longest
}

// RefreshStreaks stores the computed streaks on the user.
func (s *Snapshot) RefreshStreaks(opts StreakOptions) {
	s.User.Streak = ComputeStreak(s.DailyLogs, opts)
	s.User.LongestStreak = LongestStreak(s.DailyLogs, opts)
}

func indexLogs(logs []DailyLog) (map[string]DailyLog, time.Time, time.Time, bool) {
	var first, last time.Time
	byDate := make(map[string]DailyLog, len(logs))
	for _, l := range logs {
		d, err := ParseDate(l.Date)
		if err != nil {
			continue
		}
		if len(byDate) == 0 || d.Before(first) {
			first = d
		}
		if len(byDate) == 0 || d.After(last) {
			last = d
		}
		byDate[l.Date] = l
	}
	return byDate, first, last, len(byDate) > 0
}
