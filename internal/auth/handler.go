package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	LoginPagePath     = "/login.html"
	loginFailedTarget = LoginPagePath + "?error=invalid_credentials"
)

type Handler struct {
	authService    *Service
	csrf           *CSRF
	cookies        SessionCookies
	validate       *validator.Validate
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewHandler(
	authService *Service,
	csrf *CSRF,
	cookies SessionCookies,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		authService:    authService,
		csrf:           csrf,
		cookies:        cookies,
		validate:       validator.New(),
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// HandleLogin accepts form posts from the login page and JSON from API clients.
// Forms are answered with redirects, JSON with JSON.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.login")
	defer span.End()

	jsonReq := isJSONRequest(r)
	span.SetAttributes(attribute.Bool("json", jsonReq))

	var creds Credentials
	if jsonReq {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			log.Debugf("login, unmarshal json params: %s", err)
			pkg.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
			span.SetStatus(codes.Error, "bad-json")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Debugf("login, parse form: %s", err)
			http.Redirect(w, r, loginFailedTarget, http.StatusFound)
			span.SetStatus(codes.Error, "bad-form")
			return
		}
		creds = Credentials{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
		}
	}

	fail := func(status int, msg string) {
		if jsonReq {
			pkg.WriteJSONError(w, status, msg)
			return
		}
		http.Redirect(w, r, loginFailedTarget, http.StatusFound)
	}

	if err := h.validate.Struct(creds); err != nil {
		log.Tracef("login, invalid credentials payload: %s", err)
		fail(http.StatusBadRequest, "Username and password required")
		span.SetStatus(codes.Error, "validation")
		return
	}

	token, err := h.authService.Login(ctx, creds, h.now())
	if errors.Is(err, ErrWrongCredentials) {
		if h.metricsManager != nil {
			h.metricsManager.CounterFailedLogins.Inc()
		}
		fail(http.StatusUnauthorized, "Invalid credentials")
		span.SetStatus(codes.Error, "wrong-credentials")
		return
	}
	if err != nil {
		log.Errorf("login failed: %s", err)
		fail(http.StatusInternalServerError, "Login failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "login-error")
		return
	}

	h.cookies.Set(w, token, h.csrf.Token(token))
	log.Trace("new login success")
	span.SetStatus(codes.Ok, "ok")

	if jsonReq {
		pkg.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// HandleLogout always clears the cookies; the session is dropped when there is one.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.logout")
	defer span.End()

	if token := h.cookies.Token(r); token != "" {
		loggedOut, err := h.authService.Logout(ctx, token)
		if err != nil {
			log.Errorf("logout: %s", err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "Logout failed")
			span.RecordError(err)
			span.SetStatus(codes.Error, "logout-error")
			return
		}
		span.SetAttributes(attribute.Bool("session.existed", loggedOut))
	}

	h.cookies.Clear(w)
	span.SetStatus(codes.Ok, "ok")
	pkg.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
