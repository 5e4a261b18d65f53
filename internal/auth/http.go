package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// HTTPMiddleware authenticates requests carrying "Authorization: Bearer <jwt>" and stores
// the Principal and Actor in the request context. Paths with one of the public prefixes
// pass through untouched.
func HTTPMiddleware(secret string, users UserLookup, logger *slog.Logger, public ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range public {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			p, err := ParseBearer(r.Header.Get("Authorization"), secret)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}
			ctx := WithPrincipal(r.Context(), p)
			a, err := ResolveActor(ctx, users, p)
			if errors.Is(err, ErrUnknownUser) {
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if err != nil {
				if logger != nil {
					logger.ErrorContext(ctx, "resolve user", "user", p.Name, "error", err)
				}
				writeAuthError(w, http.StatusServiceUnavailable, "user store unavailable")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(ctx, a)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
