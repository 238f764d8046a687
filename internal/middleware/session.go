package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"wikibio/internal/session"
)

// SessionCookieName carries the opaque session token between requests.
const SessionCookieName = "wikibio_session"

type sessionKey string

const sessionIDKey sessionKey = "session_id"

// Session attaches a live session to every request. A missing, unknown, or
// expired cookie is treated as first contact: a fresh session is issued and
// set on the response.
func Session(registry *session.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string
			if cookie, err := r.Cookie(SessionCookieName); err == nil && registry.Validate(cookie.Value) {
				sid = cookie.Value
			}
			if sid == "" {
				sid = registry.Issue()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			registry.Touch(sid, ClientIP(r))
			ctx := context.WithValue(r.Context(), sessionIDKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the request's session identifier.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithSessionID injects a session identifier, bypassing the cookie
// exchange. Used by tests.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	if strings.TrimSpace(id) == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// ClientIP returns the best-effort client IP address for the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		parts := strings.Split(xf, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
