package middleware

import (
	"net/http"

	"github.com/2beens/fittrack/internal/auth"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

var csrfExemptPaths = map[string]bool{
	"/login": true,
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// CSRFCheck requires the X-XSRF-Token header on state changing requests of a session.
// Requests without a session cookie have nothing to forge and are left to the auth check.
func CSRFCheck(
	csrf *auth.CSRF,
	cookies auth.SessionCookies,
	metricsManager *metrics.Manager,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChanging(r.Method) || csrfExemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			session := cookies.Token(r)
			if session == "" {
				next.ServeHTTP(w, r)
				return
			}

			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.csrf")
			defer span.End()

			if !csrf.Valid(session, r.Header.Get(auth.CSRFHeaderName)) {
				log.Warnf("[csrf] rejected %s %s", r.Method, r.URL.Path)
				if metricsManager != nil {
					metricsManager.CounterCSRFRejected.Inc()
				}
				span.SetStatus(codes.Error, "invalid-csrf-token")
				pkg.WriteJSONError(w, http.StatusForbidden, "Invalid CSRF token")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r)
		})
	}
}
