package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/2beens/fittrack/internal/auth"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=middleware_test

type loginChecker interface {
	IsLogged(ctx context.Context, token string) (bool, error)
}

type AuthMiddlewareHandler struct {
	loginChecker   loginChecker
	cookies        auth.SessionCookies
	protectedPages map[string]bool
}

func NewAuthMiddlewareHandler(
	loginChecker loginChecker,
	cookies auth.SessionCookies,
) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		loginChecker: loginChecker,
		cookies:      cookies,
		protectedPages: map[string]bool{
			"/":           true,
			"/index.html": true,
		},
	}
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// AuthCheck lets through only requests carrying a live session cookie to the API and
// the app pages. API calls are answered with 401, page loads are sent to the login page.
// Login, logout and static assets stay public.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				span.SetStatus(codes.Ok, "options-ok")
				next.ServeHTTP(w, r)
				return
			}

			path := r.URL.Path
			isLoginPage := path == auth.LoginPagePath
			if !isAPIPath(path) && !h.protectedPages[path] && !isLoginPage {
				span.SetStatus(codes.Ok, "public")
				next.ServeHTTP(w, r)
				return
			}

			token := h.cookies.Token(r)
			isLogged := false
			if token != "" {
				var err error
				isLogged, err = h.loginChecker.IsLogged(ctx, token)
				if err != nil {
					log.Errorf("[failed login check] => %s: %s", path, err)
					span.RecordError(err)
					isLogged = false
				}
			}

			if isLoginPage {
				// nothing to log in to again
				if isLogged {
					span.SetStatus(codes.Ok, "already-logged")
					http.Redirect(w, r, "/", http.StatusFound)
					return
				}
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			if !isLogged {
				log.Tracef("[auth middleware] unauthorized => %s", path)
				span.SetStatus(codes.Error, "not-logged")
				if isAPIPath(path) {
					pkg.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
					return
				}
				http.Redirect(w, r, auth.LoginPagePath, http.StatusFound)
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.ContextWithSession(ctx, token)))
		})
	}
}
