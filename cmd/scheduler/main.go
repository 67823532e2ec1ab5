package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/vikoba/loan-engine/internal/config"
	"github.com/vikoba/loan-engine/internal/repository"
	"github.com/vikoba/loan-engine/internal/service"
)

func main() {
	log.Println("Starting lending scheduler...")

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	// No redis here: the sweep invalidates nothing it did not change, and
	// stale totals expire on their own TTL
	loanService := service.NewLoanService(loanRepo, paymentRepo, ledgerRepo, groupRepo, nil, cfg)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Daily sweep tagging long-overdue loans as defaulted. Interest accrual
	// itself stays lazy in the totals computation; this only records status.
	_, err = c.AddFunc(cfg.Scheduler.DefaultSweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		tagged, err := loanService.SweepDefaults(ctx)
		if err != nil {
			log.Printf("Default sweep failed: %v", err)
			return
		}
		log.Printf("Default sweep complete: %d loan(s) tagged", tagged)
	})
	if err != nil {
		log.Fatalf("Error scheduling default sweep: %v", err)
	}

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	c.Stop()
	log.Println("Scheduler stopped")
}
