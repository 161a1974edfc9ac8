package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"sadaka/internal/aggregate"
	"sadaka/internal/campaign"
	"sadaka/internal/domain"
	"sadaka/internal/events"
	"sadaka/internal/fund"
	"sadaka/internal/handler"
	"sadaka/internal/middleware"
	"sadaka/internal/partner"
	"sadaka/internal/payment"
	"sadaka/internal/repository/postgres"
	"sadaka/internal/scheduler"
	"sadaka/internal/search"
	"sadaka/internal/subscription"
	"sadaka/internal/user"
	"sadaka/internal/zakat"
	"sadaka/pkg/cache"
	"sadaka/pkg/config"
	"sadaka/pkg/logger"
	"sadaka/pkg/validator"
)

// store is what the HTTP layer needs from the shared cache.
type store interface {
	cache.Cache
	SetNX(ctx context.Context, key, value string, expiration time.Duration) (bool, error)
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

func main() {
	cfg := config.Load()
	log := logger.New("donation-api")

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting donation API", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := postgres.Connect(ctx, cfg.Database)
	cancel()
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()
	log.Info("Database connected", nil)

	shared := connectCache(cfg.Redis, log)

	publisher := events.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
	defer publisher.Close()

	searchClient, err := search.New(cfg.Elasticsearch, log)
	if err != nil {
		log.Fatal("Failed to create search client", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if searchClient.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := searchClient.EnsureIndices(ctx); err != nil {
			log.Warn("Failed to prepare search indices", map[string]interface{}{
				"error": err.Error(),
			})
		}
		cancel()
	}

	// Repositories
	intentRepo := postgres.NewIntentRepository(db)
	targetRepo := postgres.NewTargetRepository(db)
	fundRepo := postgres.NewFundRepository(db)
	campaignRepo := postgres.NewCampaignRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	zakatRepo := postgres.NewZakatRepository(db)
	partnerRepo := postgres.NewPartnerRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Services
	campaignReader := campaign.NewCachedReader(campaignRepo, shared, cfg.Cache.CampaignTTL, log)

	providers := payment.NewRegistry(
		payment.NewCloudPayments(cfg.CloudPayments.PublicID, cfg.CloudPayments.APISecret),
		payment.NewYooKassa(cfg.YooKassa.PublicID, cfg.YooKassa.APISecret, cfg.YooKassa.ReturnURL),
	)
	paymentService := payment.NewService(
		intentRepo,
		targetRepo,
		postgres.NewLedgerStore(db),
		aggregate.NewUpdater(log),
		providers,
		log,
		payment.WithPublisher(publisher),
		payment.WithCampaignCache(campaignReader),
		payment.WithIndexer(searchClient),
		payment.WithZakatCurrency(domain.Currency(cfg.Zakat.Currency)),
	)

	fundService := fund.NewService(fundRepo, searchClient, log)
	campaignService := campaign.NewService(campaignRepo, campaignReader, intentRepo, fundRepo, searchClient, log)
	subscriptionService := subscription.NewService(subscriptionRepo, fundRepo, paymentService, log)
	zakatService := zakat.NewService(zakatRepo, zakat.NewCalculator(cfg.Zakat.Nisab, cfg.Zakat.Rate), cfg.Zakat.Currency, log)
	partnerService := partner.NewService(partnerRepo, log)
	userService := user.NewService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, log)

	// Handlers
	val := validator.New()
	checks := []handler.Check{
		{ID: "database", Name: "PostgreSQL", Required: true, Degraded: 200 * time.Millisecond, Ping: db.PingContext},
		{ID: "cache", Name: "Redis", Degraded: 100 * time.Millisecond, Ping: shared.Ping},
	}
	if searchClient.Enabled() {
		checks = append(checks, handler.Check{ID: "search", Name: "Elasticsearch", Degraded: 500 * time.Millisecond, Ping: searchClient.Ping})
	}

	r := handler.NewRouter(handler.Handlers{
		Users:         handler.NewUserHandler(userService, val, log),
		Funds:         handler.NewFundHandler(fundService, val, log),
		Campaigns:     handler.NewCampaignHandler(campaignService, val, log),
		Donations:     handler.NewDonationHandler(paymentService, val, log),
		Webhooks:      handler.NewWebhookHandler(paymentService, log),
		Subscriptions: handler.NewSubscriptionHandler(subscriptionService, val, log),
		Zakat:         handler.NewZakatHandler(zakatService, paymentService, val, log),
		Partners:      handler.NewPartnerHandler(partnerService, val, log),
		Search:        handler.NewSearchHandler(searchClient, log),
		System:        handler.NewSystemHandler(log, checks...),
	}, handler.Middleware{
		Auth:        middleware.NewAuthMiddleware(cfg.JWT.Secret),
		Idempotency: middleware.NewIdempotencyMiddleware(shared, cfg.Cache.IdempotencyTTL, log),
		PublicLimit: middleware.NewRateLimiter(shared, "public", cfg.RateLimit.PublicPerMinute, time.Minute, log),
		APILimit:    middleware.NewRateLimiter(shared, "api", cfg.RateLimit.APIPerMinute, time.Minute, log),
		BodyLimit:   cfg.Server.BodyLimit,
		Logger:      log,
	})

	// The sweeper runs in-process unless a dedicated scheduler is deployed.
	var sweeper *scheduler.Scheduler
	if os.Getenv("EMBED_SCHEDULER") == "true" {
		sweeper = scheduler.NewScheduler(intentRepo, paymentService, cfg.Intents, log)
		if err := sweeper.Start(); err != nil {
			log.Fatal("Failed to start scheduler", map[string]interface{}{"error": err.Error()})
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Donation API started", map[string]interface{}{
			"address": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down donation API...", nil)

	if sweeper != nil {
		<-sweeper.Stop().Done()
	}

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Donation API forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Donation API stopped gracefully", nil)
}

// connectCache returns the Redis-backed cache, or an in-process one when
// Redis cannot be reached. The fallback is per instance.
func connectCache(cfg config.RedisConfig, log logger.Logger) store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, using in-memory cache", map[string]interface{}{
			"error": err.Error(),
		})
		_ = client.Close()
		return cache.NewMemory()
	}

	log.Info("Redis connected", nil)
	return cache.NewRedisCache(client)
}
