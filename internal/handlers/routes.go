package handlers

import (
	"net/http"

	"github.com/vidfriends/linkresolver/internal/middleware"
	"github.com/vidfriends/linkresolver/internal/resolver"
)

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{Checks: deps.Health}
	resolve := ResolveHandler{Resolver: deps.Resolver, Settings: deps.Settings, Defaults: deps.Defaults, History: deps.History}
	settings := SettingsHandler{Store: deps.Settings, Defaults: deps.Defaults, Admin: deps.Admin}
	history := HistoryHandler{History: deps.History}

	mux.HandleFunc("/healthz", health.Handle)
	mux.Handle("/api/v1/resolve", middleware.RateLimit(deps.Limiter, "resolve")(http.HandlerFunc(resolve.Handle)))
	mux.HandleFunc("/api/v1/settings", settings.Handle)
	mux.HandleFunc("/api/v1/history", history.Handle)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Resolver MediaResolver
	Settings SettingsStore
	Defaults resolver.ProviderConfig
	History  HistoryStore
	Admin    AdminVerifier
	Limiter  middleware.RateLimiter
	Health   map[string]HealthCheck
}
