package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter mounts the handler behind request ids, panic recovery, access logs and
// authn. /health is public.
func NewRouter(handler *Handler, authn func(http.Handler) http.Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if authn != nil {
		r.Use(authn)
	}
	handler.RegisterRoutes(r)
	return cors.Default().Handler(r)
}

// NewServer wraps router in an http.Server with conservative timeouts.
func NewServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}
