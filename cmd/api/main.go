package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/abkawan/card-ledger/internal/api"
	"github.com/abkawan/card-ledger/internal/audit"
	"github.com/abkawan/card-ledger/internal/config"
	"github.com/abkawan/card-ledger/internal/db"
	"github.com/abkawan/card-ledger/internal/queue"
	"github.com/abkawan/card-ledger/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Pick the ledger store
	var store service.Store
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("Using in-memory store, all data is lost on shutdown")
		store = db.NewMemory()
	default:
		logger.Info("Connecting to PostgreSQL...")
		postgres, err := db.NewPostgres(cfg.PostgresURI)
		if err != nil {
			logger.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer postgres.Close()

		logger.Info("Creating the schema...")
		if err := postgres.InitSchema(ctx); err != nil {
			logger.Fatalf("Failed to create schema: %v", err)
		}
		store = postgres
	}

	// Optional posting audit trail
	var auditRecorder service.AuditRecorder
	var auditReader api.AuditReader
	if cfg.MongoURI != "" {
		logger.Info("Connecting to MongoDB...")
		trail, err := audit.NewTrail(cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			logger.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer trail.Close(ctx)
		auditRecorder = trail
		auditReader = trail
	}

	// Optional posted-transaction events
	var events service.EventPublisher
	if cfg.RabbitMQURI != "" {
		logger.Info("Connecting to RabbitMQ...")
		rabbitmq, err := queue.NewRabbitMQ(cfg.RabbitMQURI)
		if err != nil {
			logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer rabbitmq.Close()
		events = rabbitmq
	}

	// Create services
	accountService := service.NewAccountService(store, logger)
	transactionService := service.NewTransactionService(store, auditRecorder, events, logger)
	reportService := service.NewReportService(store, logger)

	// Create router and set up routes
	router := mux.NewRouter()
	handler := api.NewHandler(accountService, transactionService, reportService, auditReader, logger)
	api.SetupRoutes(router, handler)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Starting server on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server shutdown failed: %v", err)
	}

	logger.Info("Server shut down successfully")
}
