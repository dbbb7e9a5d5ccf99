package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/NuoNuo720/TheNuo2/internal/config"
	"github.com/NuoNuo720/TheNuo2/internal/database"
	"github.com/NuoNuo720/TheNuo2/internal/graph"
	"github.com/NuoNuo720/TheNuo2/internal/handlers"
	"github.com/NuoNuo720/TheNuo2/internal/realtime"
	"github.com/NuoNuo720/TheNuo2/internal/repository"
	cron "github.com/NuoNuo720/TheNuo2/internal/scheduler"
	"github.com/NuoNuo720/TheNuo2/internal/services"
	"github.com/NuoNuo720/TheNuo2/pkg/logger"
	"github.com/NuoNuo720/TheNuo2/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	// Load configuration from .env file
	cfg := config.LoadConfig()

	logger.InitLogger()
	logger.Log.Info("Logger initialized")

	// Connect to MongoDB
	db, err := database.ConnectDB(cfg)
	if err != nil {
		log.Fatalf("Database connection error: %v", err)
	}

	// Open the embedded outbox store
	outboxDB, err := database.OpenOutbox(cfg.OutboxPath)
	if err != nil {
		log.Fatalf("Outbox store error: %v", err)
	}
	defer outboxDB.Close()

	// --- Repositories ---
	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	outboxRepo := repository.NewOutboxRepository(outboxDB, cfg.OutboxRetention)

	// --- Realtime core ---
	registry := realtime.NewRegistry(cfg.WriteTimeout)
	router := realtime.NewRouter(registry, outboxRepo)
	friendGraph := graph.New(friendRepo, router)
	if err := friendGraph.Load(context.Background()); err != nil {
		log.Fatalf("Failed to load friend graph: %v", err)
	}
	tracker := realtime.NewPresenceTracker(router, friendGraph.FriendsOf)
	registry.BindPresence(tracker)

	// --- Services ---
	userService := services.NewUserService(userRepo, registry, cfg.JWTSecret)
	friendService := services.NewFriendService(friendGraph, userRepo, registry, router)
	chatService := services.NewChatService(messageRepo, friendGraph, router)

	// --- Handlers ---
	userHandler := handlers.NewUserHandler(userService)
	friendHandler := handlers.NewFriendHandler(friendService)
	wsHandler := handlers.NewWSHandler(registry, router, chatService, cfg.JWTSecret, cfg.PingInterval)

	// Outbox maintenance
	cron.StartOutboxMaintenance(outboxRepo)

	// Initialize Gorilla Mux router
	r := mux.NewRouter()

	// Public user routes
	r.HandleFunc("/api/register", userHandler.RegisterUserHandler).Methods("POST")
	r.HandleFunc("/api/login", userHandler.LoginUserHandler).Methods("POST")

	// Protected user routes
	protectedUserRoutes := r.PathPrefix("/api/users").Subrouter()
	protectedUserRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedUserRoutes.HandleFunc("/search", userHandler.SearchUsersHandler).Methods("GET")
	protectedUserRoutes.HandleFunc("/{id}", userHandler.GetUserHandler).Methods("GET")

	// Friend routes
	protectedFriendRoutes := r.PathPrefix("/api/friends").Subrouter()
	protectedFriendRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedFriendRoutes.HandleFunc("/{id}/request", friendHandler.SendFriendRequestHandler).Methods("POST")
	protectedFriendRoutes.HandleFunc("/requests", friendHandler.GetPendingRequestsHandler).Methods("GET")
	protectedFriendRoutes.HandleFunc("/requests/outgoing", friendHandler.GetOutgoingRequestsHandler).Methods("GET")
	protectedFriendRoutes.HandleFunc("/requests/{id}/accept", friendHandler.AcceptRequestHandler).Methods("POST")
	protectedFriendRoutes.HandleFunc("/requests/{id}/reject", friendHandler.RejectRequestHandler).Methods("POST")
	protectedFriendRoutes.HandleFunc("/requests/{id}/cancel", friendHandler.CancelRequestHandler).Methods("POST")
	protectedFriendRoutes.HandleFunc("", friendHandler.GetFriendsHandler).Methods("GET")
	protectedFriendRoutes.HandleFunc("/{id}", friendHandler.RemoveFriendHandler).Methods("DELETE")

	// Chat routes
	protectedChatRoutes := r.PathPrefix("/api/chat").Subrouter()
	protectedChatRoutes.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	protectedChatRoutes.HandleFunc("/{friendId}", wsHandler.GetChatHistory).Methods("GET")

	// WebSocket endpoint (token comes in the query string)
	r.HandleFunc("/ws", wsHandler.ServeWS)

	// Apply middleware for logging
	r.Use(middleware.LoggingMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	fmt.Printf("Server running on port %s\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}
