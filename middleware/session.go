package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/cookie"
)

type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RequireSession rejects API requests without a session indicator with a 401 JSON
// envelope. It does not validate the session; the upstream API does that.
func RequireSession(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeUnauthorized(w, r, nil)
				return
			}
			store := cookie.NewRequestStore(w, r, engine.CookieNames(), engine.CookiePolicy())
			if !store.HasSession() {
				writeUnauthorized(w, r, engine.Logger())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ctx := r.Context()
	if logger != nil {
		logger.DebugContext(ctx, "request without session",
			slog.String("request_id", goGuard.RequestIDFromContext(ctx)),
			slog.String("path", r.URL.Path),
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error:            "unauthorized",
		ErrorDescription: "Sign in to continue.",
	})
}
