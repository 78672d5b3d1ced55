package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type languageContextKey struct{}

// Language stores the caller's preferred output language as a BCP 47 base
// tag. X-Language wins over Accept-Language; fallback applies when neither
// parses.
func Language(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := detectLanguage(r, fallback)
			ctx := context.WithValue(r.Context(), languageContextKey{}, lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLanguage(r *http.Request, fallback string) string {
	if v := strings.TrimSpace(r.Header.Get("X-Language")); v != "" {
		if tag, err := language.Parse(v); err == nil && specific(tag) {
			return baseOf(tag)
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil {
		for _, tag := range tags {
			if specific(tag) {
				return baseOf(tag)
			}
		}
	}
	return fallback
}

// specific rejects und and the "*" wildcard, which parses as mul.
func specific(tag language.Tag) bool {
	if tag == language.Und {
		return false
	}
	base, _ := tag.Base()
	return base.String() != "mul" && base.String() != "und"
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}

// LanguageFromContext returns the language stored by Language, or "".
func LanguageFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(languageContextKey{}).(string); ok {
		return v
	}
	return ""
}
