package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/car-tracker/internal/auth"
	"github.com/ukydev/car-tracker/internal/config"
	"github.com/ukydev/car-tracker/internal/db"
	"github.com/ukydev/car-tracker/internal/handlers"
	"github.com/ukydev/car-tracker/internal/ingest"
	"github.com/ukydev/car-tracker/internal/metrics"
	"github.com/ukydev/car-tracker/internal/middleware"
	"github.com/ukydev/car-tracker/internal/models"
	"github.com/ukydev/car-tracker/internal/mqttbridge"
	"github.com/ukydev/car-tracker/internal/realtime"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	cfg := config.Load()

	client, err := db.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	log.Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDatabase)
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
	if err := db.EnsureIndexes(context.Background(), database, retention); err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}

	vehicles := &db.MongoVehicleCollection{Collection: database.Collection("vehicles")}
	locations := &db.MongoLocationCollection{Collection: database.Collection("locations")}

	var users db.UserStore
	if cfg.UserStoreBackend == "mongo" {
		users = &db.MongoUserStore{Collection: database.Collection("users")}
	} else {
		users = db.NewInMemoryUserStore()
	}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}
	seedAdmin(users, authService)

	hub := realtime.NewHub()
	pipeline := ingest.New(vehicles, locations, hub)

	authHandler := handlers.NewAuthHandler(authService, users)
	vehicleHandler := handlers.NewVehicleHandler(vehicles)
	locationHandler := handlers.NewLocationHandler(pipeline, locations, vehicles)
	healthHandler := handlers.NewHealthHandler()

	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")

	api.HandleFunc("/vehicles", vehicleHandler.Create).Methods("POST")
	api.HandleFunc("/vehicles", vehicleHandler.List).Methods("GET")
	api.HandleFunc("/vehicles/active/count", vehicleHandler.ActiveCount).Methods("GET")
	api.HandleFunc("/vehicles/search/{query}", vehicleHandler.Search).Methods("GET")
	api.HandleFunc("/vehicles/{id}", vehicleHandler.Get).Methods("GET")
	api.HandleFunc("/vehicles/{id}", vehicleHandler.Update).Methods("PUT")
	api.HandleFunc("/vehicles/{id}", vehicleHandler.Delete).Methods("DELETE")
	api.HandleFunc("/vehicles/{id}/location", vehicleHandler.CurrentLocation).Methods("GET")

	api.HandleFunc("/location", locationHandler.Ingest).Methods("POST")
	api.HandleFunc("/location/alerts/{vehicleId}", locationHandler.Alerts).Methods("GET")
	api.HandleFunc("/location/stats/{vehicleId}", locationHandler.Stats).Methods("GET")
	api.HandleFunc("/location/{vehicleId}", locationHandler.Current).Methods("GET")
	api.HandleFunc("/location/{vehicleId}/history", locationHandler.History).Methods("GET")
	api.HandleFunc("/location/{vehicleId}/route", locationHandler.Route).Methods("GET")

	api.HandleFunc("/health", healthHandler.Health).Methods("GET")

	router.Handle("/metrics", metrics.Handler())
	router.Handle("/ws", hub)

	cors := middleware.NewCORSMiddleware(cfg.CORSOrigin)
	rateLimit := middleware.NewRateLimitMiddleware()
	authMiddleware := middleware.NewAuthMiddleware(authService)

	chain := cors.Handle(
		rateLimit.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)(
			authMiddleware.Authenticate(router)))

	var bridge *mqttbridge.Bridge
	if cfg.MQTTBroker != "" {
		bridge, err = mqttbridge.New(cfg.MQTTBroker, "cartracker-server", cfg.MQTTTopic, pipeline)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect MQTT bridge")
		}
		if err := bridge.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start MQTT bridge")
		}
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      chain,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down")
	if bridge != nil {
		bridge.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Shutdown error")
	}
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Error("Mongo disconnect error")
	}
}

// seedAdmin creates the default operator account. With the in-memory store
// this runs on every start; with Mongo the duplicate is ignored.
func seedAdmin(users db.UserStore, authService *auth.Service) {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	hash, err := authService.HashPassword(password)
	if err != nil {
		log.WithError(err).Fatal("Failed to hash admin password")
	}

	if _, err := users.InsertUser(context.Background(), models.User{
		Username:     username,
		Email:        username + "@cartracker.local",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}); err != nil {
		log.WithError(err).Debug("Admin account already present")
	}
}
