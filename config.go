package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the inventory ledger service.
type Config struct {
	Port string

	// Optimistic concurrency: CAS attempts before surfacing contention.
	MaxCASRetries int

	// Default reservation TTL; 0 disables auto-expiry for holds that do
	// not request one explicitly.
	ReservationTTL time.Duration

	// In-process sweep interval; 0 disables the internal sweeper and an
	// external scheduler is expected to drive POST /inventory/reservations/sweep.
	SweepInterval time.Duration

	// Kafka stock events; empty brokers disable publishing.
	KafkaBrokers []string
	KafkaTopic   string

	// Redis dashboard cache; empty address disables caching.
	RedisAddr     string
	RedisPassword string

	// SNS low-stock notifications; empty ARN disables publishing.
	AlertSNSTopicARN string
}

// LoadConfig loads environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             os.Getenv("PORT"),
		KafkaTopic:       os.Getenv("KAFKA_STOCK_EVENTS_TOPIC"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		AlertSNSTopicARN: os.Getenv("ALERT_SNS_TOPIC_ARN"),
	}

	if cfg.Port == "" {
		cfg.Port = "8086"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "stock-events"
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.MaxCASRetries, err = intEnv("MAX_CAS_RETRIES", 3); err != nil {
		return nil, err
	}
	ttlMinutes, err := intEnv("RESERVATION_TTL_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.ReservationTTL = time.Duration(ttlMinutes) * time.Minute

	sweepSeconds, err := intEnv("SWEEP_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval = time.Duration(sweepSeconds) * time.Second

	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
