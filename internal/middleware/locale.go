package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

// LocaleKey stores the negotiated locale in the request context.
var LocaleKey = localeContextKey{}

// Biography output languages the service negotiates for.
var supportedLocales = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Indonesian,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Locale negotiates the request's output language from the X-Locale header
// or Accept-Language, falling back to the configured default.
func Locale(defaultLocale string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := negotiateLocale(r, defaultLocale)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func negotiateLocale(r *http.Request, fallback string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if tag, err := language.Parse(v); err == nil {
			if matched, _, conf := localeMatcher.Match(tag); conf > language.No {
				return baseLocale(matched)
			}
		}
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			if matched, _, conf := localeMatcher.Match(tags...); conf > language.No {
				return baseLocale(matched)
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return "en"
}

func baseLocale(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// LocaleFromContext returns the negotiated locale stored in the context.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}
