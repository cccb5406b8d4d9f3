// @title Tripcrew Backend API
// @version 1.0
// @description Group and trip membership coordination for shared group trips

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/cors"

	_ "github.com/tripcrew/backend/docs" // swagger docs
	"github.com/tripcrew/backend/internal/config"
	"github.com/tripcrew/backend/internal/handlers"
	"github.com/tripcrew/backend/internal/logging"
	"github.com/tripcrew/backend/internal/notify"
	"github.com/tripcrew/backend/internal/paypal"
	"github.com/tripcrew/backend/internal/routes"
	"github.com/tripcrew/backend/internal/services"
	"github.com/tripcrew/backend/internal/store/postgres"
)

func main() {
	logging.Setup()

	// Load reads .env when present and validates the result.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	groupsSvc := services.NewGroups(db)
	tripsSvc := services.NewTrips(db)
	paymentsSvc := services.NewPayments(db)

	var paypalClient *paypal.Client
	if cfg.IsPayPalConfigured() {
		paypalClient = paypal.New(&cfg.PayPal)
	} else {
		slog.Warn("paypal credentials missing, capture endpoint disabled")
	}

	sink := notify.LogSink{}

	authHandler := handlers.NewAuthHandler(db, &cfg.JWT)
	groupsHandler := handlers.NewGroupsHandler(groupsSvc, sink)
	paymentsHandler := handlers.NewPaymentsHandler(paymentsSvc, tripsSvc, groupsSvc, paypalClient, sink)
	tripsHandler := handlers.NewTripsHandler(tripsSvc, paymentsHandler, sink)
	healthHandler := handlers.NewHealthHandler(db)

	routes.SetupRoutes(cfg, authHandler, groupsHandler, tripsHandler, healthHandler)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           c.Handler(http.DefaultServeMux),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		slog.Info("http server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
