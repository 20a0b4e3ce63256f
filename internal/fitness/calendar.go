package fitness

import (
	"time"

	"github.com/2beens/fittrack/internal/fitness/routine"
)

type CalendarDay struct {
	Date             string `json:"date"`
	Day              int    `json:"day"`
	InMonth          bool   `json:"inMonth"`
	IsToday          bool   `json:"isToday"`
	WorkoutCompleted bool   `json:"workoutCompleted"`
	HasFoodLog       bool   `json:"hasFoodLog"`
	Calories         int    `json:"calories"`
	Protein          int    `json:"protein"`
	SetCount         int    `json:"setCount"`
	RoutineName      string `json:"routineName"`
	RestDay          bool   `json:"restDay"`
}

type Calendar struct {
	Year  int             `json:"year"`
	Month time.Month      `json:"month"`
	Title string          `json:"title"`
	Weeks [][]CalendarDay `json:"weeks"`
}

// MonthCalendar lays out the month as full Sunday-first weeks, padded with days of
// the neighbouring months.
func MonthCalendar(year int, month time.Month, logs []DailyLog, today time.Time) Calendar {
	byDate := make(map[string]DailyLog, len(logs))
	for _, l := range logs {
		byDate[l.Date] = l
	}

	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	start := firstOfMonth.AddDate(0, 0, -int(firstOfMonth.Weekday()))
	lastOfMonth := firstOfMonth.AddDate(0, 1, -1)
	end := lastOfMonth.AddDate(0, 0, int(time.Saturday-lastOfMonth.Weekday()))
	todayStr := FormatDate(DateOf(today))

	cal := Calendar{
		Year:  firstOfMonth.Year(),
		Month: firstOfMonth.Month(),
		Title: firstOfMonth.Format("January 2006"),
	}
	var week []CalendarDay
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		date := FormatDate(day)
		r := routine.ForDate(day)
		cd := CalendarDay{
			Date:        date,
			Day:         day.Day(),
			InMonth:     day.Month() == firstOfMonth.Month(),
			IsToday:     date == todayStr,
			RoutineName: r.Name,
			RestDay:     r.IsRestDay(),
		}
		if l, ok := byDate[date]; ok {
			cd.WorkoutCompleted = l.WorkoutCompleted
			cd.HasFoodLog = l.FoodLog != ""
			cd.Calories = l.Calories
			cd.Protein = l.Protein
			cd.SetCount = len(l.Sets)
		}
		week = append(week, cd)
		if len(week) == 7 {
			cal.Weeks = append(cal.Weeks, week)
			week = nil
		}
	}
	return cal
}
