package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"branchdesk-server/internal/config"
	"branchdesk-server/internal/handler"
	"branchdesk-server/internal/middleware"
	"branchdesk-server/internal/repository"
	"branchdesk-server/internal/service"
	"branchdesk-server/internal/viewsync"
	"branchdesk-server/internal/websocket"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open stores: %v", err)
	}
	defer stores.Close()

	// WebSocket Manager
	wsManager := websocket.NewManager(
		cfg.WebSocket.MaxConnPerDevice,
		cfg.WebSocket.MaxMessageSize,
		cfg.WebSocket.WriteWait,
		cfg.WebSocket.PongWait,
		cfg.WebSocket.PingPeriod,
	)
	wsManager.SetMessageHandler(handler.NewWebSocketMessageHandler())
	go wsManager.Run()

	dataService := service.NewDataService(stores.Gateway, stores.Objects, cfg.Catalog.StockSource)
	authService := service.NewAuthService(cfg.JWT.Secret, cfg.JWT.Expiration, cfg.JWT.RefreshTokenExpiration)
	taskService := service.NewTaskService(dataService, cfg.Branches.Location)
	orderService := service.NewOrderService(dataService)
	deliveryService := service.NewDeliveryService(dataService)
	noteService := service.NewNoteService(dataService)
	referenceService := service.NewReferenceService(dataService)

	authHandler := handler.NewAuthHandler(authService)
	taskHandler := handler.NewTaskHandler(taskService)
	orderHandler := handler.NewOrderHandler(orderService)
	deliveryHandler := handler.NewDeliveryHandler(deliveryService, cfg.Storage.MaxUploadSize)
	noteHandler := handler.NewNoteHandler(noteService)
	referenceHandler := handler.NewReferenceHandler(referenceService)
	dataHandler := handler.NewDataHandler(dataService, stores.Objects, cfg.Branches.Names, cfg.Branches.Location, cfg.Backup.PassphraseHash)
	wsHandler := handler.NewWebSocketHandler(ctx, wsManager, authService, dataService, stores.Preferences, viewsync.Options{
		Branches:      cfg.Branches.Names,
		DefaultBranch: cfg.Branches.Default,
		Location:      cfg.Branches.Location,
	}, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/anonymous", authHandler.Anonymous).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))

	protected.HandleFunc("/tasks", taskHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/tasks/{id}", taskHandler.Update).Methods("PATCH", "OPTIONS")
	protected.HandleFunc("/tasks/{id}/complete", taskHandler.Complete).Methods("POST", "OPTIONS")
	protected.HandleFunc("/tasks/{id}/partial", taskHandler.Partial).Methods("POST", "OPTIONS")
	protected.HandleFunc("/tasks/{id}/undo", taskHandler.Undo).Methods("POST", "OPTIONS")
	protected.HandleFunc("/tasks/{id}", taskHandler.Delete).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/orders", orderHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/orders/{id}", orderHandler.Update).Methods("PATCH", "OPTIONS")
	protected.HandleFunc("/orders/{id}/status", orderHandler.SetStatus).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/orders/{id}", orderHandler.Delete).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/deliveries", deliveryHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/deliveries/{id}", deliveryHandler.Update).Methods("PATCH", "OPTIONS")
	protected.HandleFunc("/deliveries/{id}/status", deliveryHandler.SetStatus).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/deliveries/{id}/ticket", deliveryHandler.AttachTicket).Methods("POST", "OPTIONS")
	protected.HandleFunc("/deliveries/{id}", deliveryHandler.Delete).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/notes", noteHandler.Create).Methods("POST", "OPTIONS")
	protected.HandleFunc("/notes/{id}", noteHandler.Update).Methods("PATCH", "OPTIONS")
	protected.HandleFunc("/notes/{id}", noteHandler.Delete).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/procedures", referenceHandler.CreateProcedure).Methods("POST", "OPTIONS")
	protected.HandleFunc("/procedures/{id}", referenceHandler.UpdateProcedure).Methods("PATCH", "OPTIONS")
	protected.HandleFunc("/procedures/{id}", referenceHandler.DeleteProcedure).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/scripts", referenceHandler.CreateScript).Methods("POST", "OPTIONS")
	protected.HandleFunc("/scripts/{id}", referenceHandler.UpdateScript).Methods("PATCH", "OPTIONS")
	protected.HandleFunc("/scripts/{id}", referenceHandler.DeleteScript).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/stock", dataHandler.Stock).Methods("GET", "OPTIONS")
	protected.HandleFunc("/backup", dataHandler.Backup).Methods("GET", "OPTIONS")
	protected.HandleFunc("/views/{collection}", dataHandler.View).Methods("GET", "OPTIONS")
	protected.HandleFunc("/{collection}", dataHandler.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/{collection}/{id}", dataHandler.Get).Methods("GET", "OPTIONS")

	r.HandleFunc("/files/{path:.*}", dataHandler.File).Methods("GET")
	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.Handle("/metrics", promhttp.Handler())

	// Health endpoint
	r.HandleFunc("/health", healthHandler).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting Branchdesk Server on %s (env: %s, store: %s)", addr, cfg.Server.Env, cfg.Storage.Driver)
		log.Printf("Branches: %v (default %s, timezone %s)", cfg.Branches.Names, cfg.Branches.Default, cfg.Branches.Location)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	wsManager.Broadcast(websocket.TypeNotice, viewsync.Notice{Level: "info", Message: "Server is restarting, reconnect shortly"})
	wsManager.Shutdown()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func openStores(ctx context.Context, cfg *config.Config) (*repository.Stores, error) {
	if cfg.Storage.Driver == "memory" {
		log.Printf("Using in-memory store; data is lost on restart")
		return repository.OpenMemory(cfg.Storage.PublicBaseURL), nil
	}

	stores, err := repository.OpenCouch(ctx, cfg.Database.URL(), cfg.Database.Name, cfg.Database.AutoCreate, cfg.Database.ReconnectDelay, cfg.Storage.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to CouchDB at %s:%s", cfg.Database.Host, cfg.Database.Port)
	return stores, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"branchdesk-server"}`))
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"Branchdesk Server API","version":"1.0.0","endpoints":{"/api/v1/auth/anonymous":"POST","/api/v1/views/{collection}?branch=":"GET (protected)","/ws?token=&device_id=":"WebSocket","/metrics":"GET"}}`))
}
