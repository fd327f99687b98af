package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"parkside/internal/api"
	"parkside/internal/auth"
	"parkside/internal/config"
	"parkside/internal/repository/postgres"
	"parkside/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := database.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	userRepo := postgres.NewUserRepository(database)
	lotRepo := postgres.NewLotRepository(database)
	spotRepo := postgres.NewSpotRepository(database)
	reservationRepo := postgres.NewReservationRepository(database)
	reportRepo := postgres.NewReportRepository(database)

	sender := service.NewSenderService(cfg.SendgridAPIKey, cfg.SendgridFromEmail, cfg.SendgridFromName)
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret)
	userSvc := service.NewUserService(userRepo)
	inventorySvc := service.NewInventoryService(lotRepo, spotRepo)
	reservationSvc := service.NewReservationService(reservationRepo, spotRepo, lotRepo, userRepo, sender)
	reportSvc := service.NewReportService(reportRepo, reservationRepo, spotRepo, lotRepo)
	jobSvc := service.NewJobService(reservationRepo, cfg.MaxSessionHours)

	authHandler := api.NewAuthHandler(authSvc)
	userHandler := api.NewUserHandler(reservationSvc, inventorySvc, reportSvc, userSvc)
	adminHandler := api.NewAdminHandler(inventorySvc, reservationSvc, reportSvc)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/login", authHandler.Login).Methods("POST")

	// Authenticated endpoints
	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(auth.Middleware(authSvc))
	authed.HandleFunc("/lots", userHandler.ListLots).Methods("GET")
	authed.HandleFunc("/lots/{id}/spots", userHandler.ListSpots).Methods("GET")
	authed.HandleFunc("/reservations", userHandler.Book).Methods("POST")
	authed.HandleFunc("/reservations/{id}/release", userHandler.Release).Methods("POST")
	authed.HandleFunc("/reservations/{id}/estimate", userHandler.EstimateCost).Methods("GET")
	authed.HandleFunc("/me/reservations", userHandler.MyReservations).Methods("GET")
	authed.HandleFunc("/me/summary", userHandler.MySummary).Methods("GET")
	authed.HandleFunc("/me/profile", userHandler.UpdateProfile).Methods("PUT")
	authed.HandleFunc("/me/vehicles", userHandler.AddVehicle).Methods("POST")
	authed.HandleFunc("/me/vehicles", userHandler.MyVehicles).Methods("GET")

	// Admin endpoints (protected)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.Middleware(authSvc), auth.AdminOnly)
	admin.HandleFunc("/lots", adminHandler.CreateLot).Methods("POST")
	admin.HandleFunc("/lots/{id}", adminHandler.UpdateLot).Methods("PUT")
	admin.HandleFunc("/lots/{id}", adminHandler.DeleteLot).Methods("DELETE")
	admin.HandleFunc("/lots/{id}/resize", adminHandler.ResizeLot).Methods("POST")
	admin.HandleFunc("/lots/{id}/spots", adminHandler.AddSpot).Methods("POST")
	admin.HandleFunc("/spots/{id}", adminHandler.UpdateSpot).Methods("PUT")
	admin.HandleFunc("/spots/{id}", adminHandler.RemoveSpot).Methods("DELETE")
	admin.HandleFunc("/spots/{id}/force-release", adminHandler.ForceRelease).Methods("POST")
	admin.HandleFunc("/reservations", adminHandler.ListReservations).Methods("GET")
	admin.HandleFunc("/summary", adminHandler.Summary).Methods("GET")

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ExpirySchedule, func() {
		if _, err := jobSvc.ExpireOverdueReservations(context.Background()); err != nil {
			log.Printf("Expiry sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Printf("Server running on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handlers.LoggingHandler(log.Writer(), corsHandler(r))))
}
