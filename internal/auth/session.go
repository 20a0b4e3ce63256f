package auth

import (
	"context"
	"net/http"
	"time"
)

type sessionCtxKey struct{}

// SessionCookies names and scopes the cookies set on login.
type SessionCookies struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

func (sc SessionCookies) Token(r *http.Request) string {
	c, err := r.Cookie(sc.Name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (sc SessionCookies) Set(w http.ResponseWriter, sessionToken, csrfToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sc.Name,
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int(sc.TTL.Seconds()),
		HttpOnly: true,
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	// readable by the page so it can echo it back in the header
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    csrfToken,
		Path:     "/",
		MaxAge:   int(sc.TTL.Seconds()),
		Secure:   sc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (sc SessionCookies) Clear(w http.ResponseWriter) {
	for _, name := range []string{sc.Name, CSRFCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
}

func ContextWithSession(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, token)
}

func SessionFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionCtxKey{}).(string)
	return token, ok && token != ""
}
