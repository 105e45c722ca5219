package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	stringsutil "rollcall/pkg/platform/strings"
)

// Config captures process-level configuration for the rollcall server.
type Config struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the PostgreSQL backend; empty runs on in-memory
	// stores (development and tests).
	DatabaseURL string

	// RedisURL, when set, backs sequence counters with Redis instead of the
	// SQL compare-and-swap path.
	RedisURL string

	// KafkaBrokers, when set, routes audit events to Kafka instead of the
	// in-process store worker.
	KafkaBrokers []string
	KafkaTopic   string

	// SequenceRetainDays bounds the retention sweep for daily counters.
	SequenceRetainDays int

	ShutdownTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:               getEnv("ROLLCALL_ADDR", ":8080"),
		JWTSigningKey:      getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaTopic:         getEnv("KAFKA_AUDIT_TOPIC", "rollcall.audit"),
		SequenceRetainDays: getEnvInt("SEQUENCE_RETAIN_DAYS", 30),
		ShutdownTimeout:    10 * time.Second,
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = stringsutil.DedupeAndTrim(strings.Split(brokers, ","))
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
