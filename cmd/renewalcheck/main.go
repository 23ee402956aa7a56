// Command renewalcheck runs one pass of the membership renewal sweep and
// exits. It is meant to be scheduled (cron or a Kubernetes CronJob); the
// notification cooldown keeps overlapping runs from duplicating alerts.
package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/gymfit/internal/config"
	"example.com/gymfit/internal/database"
	"example.com/gymfit/internal/notify"
	persistence "example.com/gymfit/internal/persistence/postgres"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
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
	dedup := notify.NewDeduplicator(repo, cfg.NotificationCooldown)
	checker := notify.NewRenewalChecker(repo, dedup, cfg.RenewalHorizon)

	created, err := checker.Run(ctx, time.Now().UTC())
	if err != nil {
		log.Fatalf("renewal check failed: %v", err)
	}
	log.Printf("renewal check done, %d notification(s) created", created)
}
