package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"wikibio/internal/session"
)

func TestSessionIssuesCookieOnFirstContact(t *testing.T) {
	registry := session.NewRegistry()
	var seen string
	handler := Session(registry)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatalf("no session id in context")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName {
		t.Fatalf("cookies = %v", cookies)
	}
	if cookies[0].Value != seen {
		t.Fatalf("cookie %q != context id %q", cookies[0].Value, seen)
	}
	if !cookies[0].HttpOnly {
		t.Fatalf("cookie not HttpOnly")
	}
	if !registry.Validate(seen) {
		t.Fatalf("issued session not registered")
	}
}

func TestSessionReusesValidCookie(t *testing.T) {
	registry := session.NewRegistry()
	existing := registry.Issue()
	var seen string
	handler := Session(registry)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: existing})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != existing {
		t.Fatalf("session = %q, want %q", seen, existing)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("cookie reissued for a valid session")
	}
}

func TestSessionExpiredCookieGetsFreshSession(t *testing.T) {
	registry := session.NewRegistry()
	old := registry.Issue()
	registry.Expire(old)
	var seen string
	handler := Session(registry)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: old})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen == old || seen == "" {
		t.Fatalf("expired cookie not replaced, got %q", seen)
	}
	if !registry.Validate(seen) {
		t.Fatalf("replacement session not live")
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := ClientIP(req); got != "203.0.113.7" {
		t.Fatalf("ip = %q", got)
	}
	req.Header.Del("X-Forwarded-For")
	if got := ClientIP(req); got != "192.0.2.10" {
		t.Fatalf("ip = %q", got)
	}
}
