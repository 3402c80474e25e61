package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"playground/internal/infra/geoip"
)

// Country adds the caller's ISO country code to the request-scoped logger.
// It must run after Logger. Lookup failures are ignored.
func Country(resolver geoip.CountryResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if resolver == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if code, err := resolver.CountryCode(clientIPForRateLimit(r)); err == nil && code != "" {
				zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
					return c.Str("country", code)
				})
			}
			next.ServeHTTP(w, r)
		})
	}
}
