package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/fittrack/internal/fitness"
	"github.com/2beens/fittrack/internal/fitness/routine"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type RoutineResponse struct {
	DayOfWeek int               `json:"dayOfWeek"`
	Date      string            `json:"date,omitempty"`
	RestDay   bool              `json:"restDay"`
	Routine   routine.Routine   `json:"routine"`
	Guides    map[string]string `json:"guides"`
}

func newRoutineResponse(day int, r routine.Routine) RoutineResponse {
	return RoutineResponse{
		DayOfWeek: day,
		RestDay:   r.IsRestDay(),
		Routine:   r,
		Guides:    r.Guides(),
	}
}

// HandleRoutineForDay serves the routine of a day of the week, 0 being Sunday.
func (handler *Handler) HandleRoutineForDay(w http.ResponseWriter, r *http.Request) {
	dayStr := mux.Vars(r)["day"]
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 0 || day > 6 {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid day, expected 0-6")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, newRoutineResponse(day, routine.ForDayOfWeek(day)))
}

func (handler *Handler) HandleRoutineToday(w http.ResponseWriter, r *http.Request) {
	now := handler.now()
	resp := newRoutineResponse(int(now.Weekday()), routine.ForDate(now))
	resp.Date = fitness.FormatDate(now)
	pkg.WriteJSON(w, http.StatusOK, resp)
}

func (handler *Handler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.fitness.calendar")
	defer span.End()

	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil || year < 1970 || year > 9999 {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid year")
		return
	}
	month, err := strconv.Atoi(vars["month"])
	if err != nil || month < 1 || month > 12 {
		pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid month")
		return
	}

	snapshot, err := handler.store.Snapshot(ctx)
	if err != nil {
		log.Errorf("calendar, snapshot: %s", err)
		span.RecordError(err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, errDatabase)
		return
	}

	pkg.WriteJSON(w, http.StatusOK, fitness.MonthCalendar(year, time.Month(month), snapshot.DailyLogs, handler.now()))
}
