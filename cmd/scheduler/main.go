package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/credium/settlement-engine/internal/config"
	"github.com/credium/settlement-engine/internal/repository"
	"github.com/credium/settlement-engine/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := cfg.NewLogger()
	logger.Info("Starting settlement scheduler...")

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	settlementService := service.NewSettlementService(
		repository.NewContractRepository(db),
		repository.NewInstallmentRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewCustomerRepository(db),
		service.NewRedisCascadeLocker(redisClient, cfg.GetSettlementLockTTL()),
		redisClient,
		cfg,
		logger,
	)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Daily sweep: promote unpaid installments past due to overdue.
	_, err = c.AddFunc(cfg.Scheduler.OverdueSweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		marked, err := settlementService.SweepOverdue(ctx, time.Now().In(location))
		if err != nil {
			logger.WithError(err).Error("overdue sweep failed")
			return
		}
		logger.WithField("installments", marked).Info("overdue sweep finished")
	})
	if err != nil {
		logger.Fatalf("Failed to schedule overdue sweep: %v", err)
	}

	c.Start()
	logger.Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}
