// Package client talks to the fittrack HTTP API and keeps an optimistic local copy of the user's data.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/2beens/fittrack/internal/auth"
	"github.com/2beens/fittrack/internal/fitness"
	"github.com/2beens/fittrack/internal/fitness/api"
	"github.com/2beens/fittrack/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired, please refresh")
)

// APIError is any other non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error [%d]: %s", e.StatusCode, e.Message)
}

type API struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) (*API, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %s: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %s", baseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}
	// the server redirects browsers; API calls want the raw answer
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &API{
		baseURL:    u,
		httpClient: httpClient,
	}, nil
}

func (a *API) cookie(name string) string {
	for _, c := range a.httpClient.Jar.Cookies(a.baseURL) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// do sends a JSON request and decodes the JSON answer into respBody, if given.
func (a *API) do(ctx context.Context, method, path string, reqBody, respBody any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "clientApi.do")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
	)

	var body io.Reader
	if reqBody != nil {
		reqBytes, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(reqBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		if csrfToken := a.cookie(auth.CSRFCookieName); csrfToken != "" {
			req.Header.Set(auth.CSRFHeaderName, csrfToken)
		}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrSessionExpired
	case resp.StatusCode == http.StatusFound:
		// protected pages bounce to the login page
		return ErrUnauthorized
	case resp.StatusCode >= 300:
		return newAPIError(resp.StatusCode, respBytes)
	}

	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(respBytes, respBody); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", path, err)
	}
	return nil
}

func newAPIError(statusCode int, respBytes []byte) *APIError {
	errResp := struct {
		Error string `json:"error"`
	}{}
	if err := json.Unmarshal(respBytes, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: statusCode, Message: http.StatusText(statusCode)}
	}
	return &APIError{StatusCode: statusCode, Message: errResp.Error}
}

func (a *API) Login(ctx context.Context, username, password string) error {
	creds := auth.Credentials{Username: username, Password: password}
	if err := a.do(ctx, http.MethodPost, "/login", creds, nil); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if a.cookie(auth.CSRFCookieName) == "" {
		return errors.New("login: no csrf cookie received")
	}
	return nil
}

func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/logout", nil, nil)
}

func (a *API) Snapshot(ctx context.Context) (*fitness.Snapshot, error) {
	snapshot := fitness.NewSnapshot(fitness.User{})
	if err := a.do(ctx, http.MethodGet, "/api/data", nil, snapshot); err != nil {
		return nil, err
	}
	snapshot.Reconcile()
	return snapshot, nil
}

func (a *API) UpdateFoodLog(ctx context.Context, date, foodLog string) error {
	return a.do(ctx, http.MethodPost, "/api/update-food-log", api.FoodLogRequest{
		FoodLog: foodLog,
		Date:    date,
	}, nil)
}

func (a *API) UpdateNutrition(ctx context.Context, date string, calories, protein int) error {
	return a.do(ctx, http.MethodPost, "/api/update-nutrition", api.NutritionRequest{
		Calories: calories,
		Protein:  protein,
		Date:     date,
	}, nil)
}

// LogWorkout records a set and returns the id the server assigned to it.
func (a *API) LogWorkout(ctx context.Context, set fitness.WorkoutSet) (int64, error) {
	var resp api.LogWorkoutResponse
	if err := a.do(ctx, http.MethodPost, "/api/log-workout", api.LogWorkoutRequest{
		Exercise: set.ExerciseName,
		Reps:     set.Reps,
		Weight:   set.Weight,
		Date:     set.Date,
	}, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (a *API) DeleteSet(ctx context.Context, id int64) error {
	return a.do(ctx, http.MethodDelete, "/api/sets/"+strconv.FormatInt(id, 10), nil, nil)
}

func (a *API) UpdateUser(ctx context.Context, patch fitness.UserPatch) (*fitness.User, error) {
	var resp api.UpdateUserResponse
	if err := a.do(ctx, http.MethodPost, "/api/update-user", patch, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Username returns the name of the logged in session user.
func (a *API) Username(ctx context.Context) (string, error) {
	var resp api.UserResponse
	if err := a.do(ctx, http.MethodGet, "/api/user", nil, &resp); err != nil {
		return "", err
	}
	return resp.User.Username, nil
}

func (a *API) Stats(ctx context.Context) (*fitness.Stats, error) {
	var stats fitness.Stats
	if err := a.do(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (a *API) Activities(ctx context.Context) ([]fitness.Activity, error) {
	var activities []fitness.Activity
	if err := a.do(ctx, http.MethodGet, "/api/activities", nil, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (a *API) AddActivity(ctx context.Context, req api.ActivityRequest) (*fitness.Activity, error) {
	var activity fitness.Activity
	if err := a.do(ctx, http.MethodPost, "/api/activities", req, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (a *API) RoutineToday(ctx context.Context) (*api.RoutineResponse, error) {
	var resp api.RoutineResponse
	if err := a.do(ctx, http.MethodGet, "/api/routine/today", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) Routine(ctx context.Context, dayOfWeek int) (*api.RoutineResponse, error) {
	var resp api.RoutineResponse
	if err := a.do(ctx, http.MethodGet, "/api/routine/"+strconv.Itoa(dayOfWeek), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) Calendar(ctx context.Context, year, month int) (*fitness.Calendar, error) {
	var cal fitness.Calendar
	path := fmt.Sprintf("/api/calendar/%d/%d", year, month)
	if err := a.do(ctx, http.MethodGet, path, nil, &cal); err != nil {
		return nil, err
	}
	return &cal, nil
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SaveSession writes the session and csrf cookies to path, readable by the owner only.
func (a *API) SaveSession(path string) error {
	var saved []savedCookie
	for _, c := range a.httpClient.Jar.Cookies(a.baseURL) {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value})
	}

	savedBytes, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, savedBytes, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// LoadSession restores cookies saved by SaveSession. A missing file is not an error.
func (a *API) LoadSession(path string) error {
	savedBytes, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Debugf("no saved session in %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read session file: %w", err)
	}

	var saved []savedCookie
	if err := json.Unmarshal(savedBytes, &saved); err != nil {
		return fmt.Errorf("unmarshal session: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	a.httpClient.Jar.SetCookies(a.baseURL, cookies)
	return nil
}

// ClearSession drops the saved session file.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
