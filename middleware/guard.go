package middleware

import (
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/guard"
)

// RouteGuard applies the navigation decision table to every request. Unauthenticated
// requests for protected paths and authenticated requests for the login page are
// answered with 302 Found. Security headers are written on every response, redirects
// included.
func RouteGuard(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if engine == nil {
			headers := SecurityHeaders(goGuard.DefaultConfig().Headers)
			return headers(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			}))
		}

		headers := SecurityHeaders(engine.Headers())
		return headers(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := engine.RouteDecision(w, r)
			if d.Outcome == guard.Allow {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, d.Location, http.StatusFound)
		}))
	}
}
