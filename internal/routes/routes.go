package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/tripcrew/backend/internal/config"
	"github.com/tripcrew/backend/internal/handlers"
	"github.com/tripcrew/backend/internal/middleware"
)

// SetupRoutes configures all application routes
func SetupRoutes(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	groupsHandler *handlers.GroupsHandler,
	tripsHandler *handlers.TripsHandler,
	healthHandler *handlers.HealthHandler,
) {
	// Authenticated routes carry the JWT middleware; everything passes
	// through the request metrics.
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.Metrics(middleware.AuthMiddleware(h, &cfg.JWT))
	}
	open := middleware.Metrics

	// Health check routes
	http.HandleFunc("/healthz", open(healthHandler.HealthCheck))
	http.HandleFunc("/livez", open(healthHandler.LivenessCheck))
	http.HandleFunc("/readyz", open(healthHandler.ReadinessCheck))

	// Authentication routes
	http.HandleFunc("/api/auth/register", open(authHandler.Register))
	http.HandleFunc("/api/auth/login", open(authHandler.Login))
	http.HandleFunc("/api/auth/profile", authed(authHandler.GetProfile))

	// Group routes
	http.HandleFunc("/api/groups", authed(groupsHandler.Groups))
	http.HandleFunc("/api/groups/join", authed(groupsHandler.JoinGroup))
	http.HandleFunc("/api/groups/", authed(groupsHandler.GroupByID))

	// Trip, subscription and payment routes
	http.HandleFunc("/api/trips", authed(tripsHandler.Trips))
	http.HandleFunc("/api/trips/", authed(tripsHandler.TripByID))

	// Operational endpoints
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Root route
	http.HandleFunc("/", rootHandler)
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Tripcrew backend is running."))
}
