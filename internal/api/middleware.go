package api

import (
	"context"
	"net/http"

	"github.com/joycelee/atelier/internal/session"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

// SessionCookie is the name of the session identifier cookie. It is a
// browser-session cookie: the unlock survives reloads but not a closed
// browser, matching the intended scope of the gate.
const SessionCookie = "atelier_session"

// WithSession issues a session cookie when the client has none and stores
// the identifier in the request context.
func WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
		if id == "" {
			id = session.NewID()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionIDKey, id)))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionIDKey).(string)
	return id
}

// RequireActive rejects mutation requests unless the client's edit session
// is active.
func RequireActive(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sessions.StateOf(sessionID(r)) {
			case session.Active:
				next.ServeHTTP(w, r)
			case session.Unlocked:
				writeJSON(w, http.StatusForbidden, errorBody("edit mode not active"))
			default:
				writeJSON(w, http.StatusUnauthorized, errorBody("unlock required"))
			}
		})
	}
}
