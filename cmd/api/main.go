package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/gymfit/internal/api"
	"example.com/gymfit/internal/assistant"
	"example.com/gymfit/internal/auth"
	"example.com/gymfit/internal/booking"
	"example.com/gymfit/internal/config"
	"example.com/gymfit/internal/database"
	"example.com/gymfit/internal/middleware"
	"example.com/gymfit/internal/notify"
	"example.com/gymfit/internal/outbox"
	persistence "example.com/gymfit/internal/persistence/postgres"
	httptransport "example.com/gymfit/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.RunMigrations(cfg.PostgresURL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(pool, producer, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	dedup := notify.NewDeduplicator(repo, cfg.NotificationCooldown)
	coordinator := booking.NewCoordinator(repo)
	renewal := notify.NewRenewalChecker(repo, dedup, cfg.RenewalHorizon)

	chatClient := assistant.NewOpenAIClient(cfg.ChatServiceURL, cfg.ChatAPIKey, cfg.ChatModel, cfg.ChatMaxTokens, cfg.ChatTimeout)
	chat := assistant.NewService(repo, chatClient, cfg.StatsLookback, cfg.ChatTimeout)

	limiter := middleware.NewPerMemberLimiter(cfg.ChatRatePerMin, cfg.ChatRateBurst)
	defer limiter.Stop()

	handler := api.NewHandler(repo, coordinator, dedup, renewal, chat, limiter, cfg.StatsLookback)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		func(r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		},
	)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, logger(authMiddleware.Wrap(mux)))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("gymfit api listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	dispatcher.Wait()
}
