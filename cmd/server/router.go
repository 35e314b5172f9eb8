package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/temba-api/internal/api"
	apiMiddleware "github.com/phrazzld/temba-api/internal/api/middleware"
)

// setupRouter creates the router with every route and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	handler := api.NewHandler(app.stores, app.tx, app.eventEmitter, app.config.API, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.stores.Orgs, app.stores.Users)

	r.Route("/api/v2", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		handler.Register(r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
