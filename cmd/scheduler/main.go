package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sadaka/internal/aggregate"
	"sadaka/internal/events"
	"sadaka/internal/payment"
	"sadaka/internal/repository/postgres"
	"sadaka/internal/scheduler"
	"sadaka/pkg/config"
	"sadaka/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New("intent-scheduler")

	if err := cfg.ValidateScheduler(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := postgres.Connect(ctx, cfg.Database)
	cancel()
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	publisher := events.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
	defer publisher.Close()

	intentRepo := postgres.NewIntentRepository(db)

	// Failing an intent touches no provider, so the registry stays empty.
	paymentService := payment.NewService(
		intentRepo,
		postgres.NewTargetRepository(db),
		postgres.NewLedgerStore(db),
		aggregate.NewUpdater(log),
		payment.NewRegistry(),
		log,
		payment.WithPublisher(publisher),
	)

	sweeper := scheduler.NewScheduler(intentRepo, paymentService, cfg.Intents, log)

	if len(os.Args) > 1 && os.Args[1] == "once" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := sweeper.SweepStaleIntents(ctx)
		if err != nil {
			log.Fatal("Intent sweep failed", map[string]interface{}{"error": err.Error()})
		}
		log.Info("Intent sweep finished", map[string]interface{}{"failed": n})
		return
	}

	if err := sweeper.Start(); err != nil {
		log.Fatal("Failed to start scheduler", map[string]interface{}{"error": err.Error()})
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...", nil)
	<-sweeper.Stop().Done()
	log.Info("Scheduler stopped", nil)
}
