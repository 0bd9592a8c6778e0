package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/credium/settlement-engine/internal/config"
	"github.com/credium/settlement-engine/internal/handler"
	"github.com/credium/settlement-engine/internal/repository"
	"github.com/credium/settlement-engine/internal/service"
	"github.com/credium/settlement-engine/pkg/response"
)

func main() {
	// Load .env before viper reads the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := cfg.NewLogger()

	db, err := initDB(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	contractRepo := repository.NewContractRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	customerRepo := repository.NewCustomerRepository(db)

	// Initialize service
	locker := service.NewRedisCascadeLocker(redisClient, cfg.GetSettlementLockTTL())
	settlementService := service.NewSettlementService(
		contractRepo, installmentRepo, paymentRepo, customerRepo,
		locker, redisClient, cfg, logger,
	)
	settlementHandler := handler.NewSettlementHandler(settlementService, logger)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	router := setupRoutes(settlementHandler, healthHandler, logger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(settlementHandler *handler.SettlementHandler, healthHandler *handler.HealthHandler, logger *logrus.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(logger))

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/amortization/quote", settlementHandler.QuoteAmortization).Methods("POST")
	api.HandleFunc("/contracts", settlementHandler.CreateContract).Methods("POST")
	api.HandleFunc("/contracts/{contractId}/activate", settlementHandler.ActivateContract).Methods("POST")
	api.HandleFunc("/contracts/{contractId}/cancel", settlementHandler.CancelContract).Methods("POST")
	api.HandleFunc("/contracts/{contractId}/schedule", settlementHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/installments/{installmentId}/payments", settlementHandler.RecordPayment).Methods("POST")
	api.HandleFunc("/installments/{installmentId}/resettle", settlementHandler.ResettleInstallment).Methods("POST")
	api.HandleFunc("/payments/{paymentId}", settlementHandler.ReversePayment).Methods("DELETE")
	api.HandleFunc("/companies/{companyId}/overdue", settlementHandler.GetOverdueSummary).Methods("GET")

	return router
}
