package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/fittrack/internal/fitness"
	"github.com/2beens/fittrack/internal/fitness/routine"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	todayStyle = lipgloss.NewStyle().Underline(true)
)

func formatSet(set fitness.WorkoutSet) string {
	s := fmt.Sprintf("%s %d reps", set.ExerciseName, set.Reps)
	if set.Weight > 0 {
		s += " @ " + strconv.FormatFloat(set.Weight, 'f', -1, 64) + "kg"
	}
	if set.ID > 0 {
		s = fmt.Sprintf("#%d %s", set.ID, s)
	}
	return s
}

func renderDay(s *fitness.Snapshot, day, now time.Time) string {
	var b strings.Builder

	header := fmt.Sprintf("%s %s", day.Weekday(), fitness.FormatDate(day))
	if n := s.User.JourneyDay(now); n > 0 {
		header = fmt.Sprintf("DAY %d · %s", n, header)
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  streak %d (best %d)", s.User.Streak, s.User.LongestStreak)))
	b.WriteString("\n\n")

	r := routine.ForDate(day)
	b.WriteString(renderRoutine(int(day.Weekday()), r, nil, s.WorkoutHistory))
	b.WriteString("\n")

	log, ok := s.FindLog(fitness.FormatDate(day))
	if !ok {
		log = &fitness.DailyLog{}
	}

	b.WriteString(titleStyle.Render("Sets"))
	b.WriteString("\n")
	if len(log.Sets) == 0 {
		b.WriteString(dimStyle.Render("  nothing logged"))
		b.WriteString("\n")
	}
	for _, set := range log.Sets {
		b.WriteString("  " + formatSet(set) + "\n")
	}
	if log.WorkoutCompleted {
		b.WriteString(doneStyle.Render("  workout completed"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Nutrition"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %d / %d kcal, %d / %d g protein\n",
		log.Calories, s.User.CalorieTarget, log.Protein, s.User.ProteinTarget))
	if log.FoodLog != "" {
		for _, line := range strings.Split(log.FoodLog, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}

	return b.String()
}

// renderRoutine lists the exercises of a routine. History adds the last logged
// numbers and guides add the form cues, when given.
func renderRoutine(dayOfWeek int, r routine.Routine, guides map[string]string, history fitness.WorkoutHistory) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s", time.Weekday(dayOfWeek), r.Name)))
	b.WriteString("\n")
	if r.IsRestDay() {
		b.WriteString(dimStyle.Render("  rest day"))
		b.WriteString("\n")
		return b.String()
	}

	for _, ex := range r.Exercises {
		line := fmt.Sprintf("  %-22s %s", ex.Name, ex.Target)
		if ex.Weight > 0 {
			line += fmt.Sprintf(" (%s %skg)", ex.Type, strconv.FormatFloat(ex.Weight, 'f', -1, 64))
		}
		if h, ok := history[ex.Name]; ok {
			line += dimStyle.Render(fmt.Sprintf("  last: %d reps", h.LastReps))
			if h.LastWeight > 0 {
				line += dimStyle.Render(" @ " + strconv.FormatFloat(h.LastWeight, 'f', -1, 64) + "kg")
			}
		}
		b.WriteString(line + "\n")
		if guide, ok := guides[ex.Name]; ok {
			b.WriteString(dimStyle.Render("      "+guide) + "\n")
		}
	}
	return b.String()
}

func renderCalendar(cal *fitness.Calendar) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(cal.Title))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(" Su  Mo  Tu  We  Th  Fr  Sa"))
	b.WriteString("\n")

	for _, week := range cal.Weeks {
		for _, day := range week {
			cell := fmt.Sprintf("%3d", day.Day)
			switch {
			case !day.InMonth:
				cell = dimStyle.Render(cell)
			case day.WorkoutCompleted:
				cell = doneStyle.Render(cell)
			}
			if day.IsToday {
				cell = todayStyle.Render(cell)
			}
			mark := " "
			if day.InMonth && day.WorkoutCompleted {
				mark = "*"
			}
			b.WriteString(cell + mark)
		}
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("* workout completed"))
	b.WriteString("\n")
	return b.String()
}

func renderStats(stats *fitness.Stats) string {
	rows := [][2]string{
		{"Journey day", strconv.Itoa(stats.JourneyDay)},
		{"Workouts", strconv.Itoa(stats.Workouts)},
		{"Current streak", strconv.Itoa(stats.Streak)},
		{"Longest streak", strconv.Itoa(stats.LongestStreak)},
		{"Active minutes", strconv.Itoa(stats.ActiveMinutes)},
		{"Calories burned", strconv.Itoa(stats.CaloriesBurned)},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Stats"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("  %-16s %s\n", row[0], row[1]))
	}
	return b.String()
}

func renderUser(u fitness.User) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(u.Name))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  weight          %skg\n", strconv.FormatFloat(u.Weight, 'f', -1, 64)))
	b.WriteString(fmt.Sprintf("  calorie target  %d kcal\n", u.CalorieTarget))
	b.WriteString(fmt.Sprintf("  protein target  %d g\n", u.ProteinTarget))
	b.WriteString(fmt.Sprintf("  start date      %s\n", u.StartDate))
	return b.String()
}
