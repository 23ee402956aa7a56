package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, 7*24*time.Hour, cfg.NotificationCooldown)
	require.Equal(t, 30*24*time.Hour, cfg.StatsLookback)
	require.Equal(t, 10*time.Second, cfg.ChatTimeout)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NOTIFICATION_COOLDOWN", "48h")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("CHAT_RATE_PER_MIN", "2.5")

	cfg := Load()

	require.Equal(t, 48*time.Hour, cfg.NotificationCooldown)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	require.InDelta(t, 2.5, cfg.ChatRatePerMin, 0.001)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("NOTIFICATION_COOLDOWN", "soon")
	t.Setenv("OUTBOX_BATCH_SIZE", "many")

	cfg := Load()

	require.Equal(t, 7*24*time.Hour, cfg.NotificationCooldown)
	require.Equal(t, 25, cfg.OutboxBatchSize)
}
