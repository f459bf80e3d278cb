package middleware

import (
	"context"
	"net/http"

	"signserver/internal/session"
)

type contextKey string

const sessionKey contextKey = "sessionID"

// SessionMiddleware makes sure every request carries a session cookie and
// keeps the matching session alive in the manager. New visitors get a
// fresh id on their first response.
func SessionMiddleware(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
				id = cookie.Value
			} else {
				id = sessions.NewID()
				http.SetCookie(w, &http.Cookie{
					Name:     session.CookieName,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			sessions.Touch(id)
			ctx := context.WithValue(r.Context(), sessionKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionID reads the session id stored by SessionMiddleware. Requests
// that bypassed the middleware get an empty string.
func SessionID(r *http.Request) string {
	if id, ok := r.Context().Value(sessionKey).(string); ok {
		return id
	}
	return ""
}
