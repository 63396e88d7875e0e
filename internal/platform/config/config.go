package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	id "github.com/sr13dr31/belyispisok/pkg/domain"
)

// Config is the full process configuration, built once in main.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	// PassportSecret is the primary key material for passport encryption.
	// The process must not start without it.
	PassportSecret string
	// PassportSecretPrevious, when set, lets the cipher decrypt values
	// written under the retired secret so reads can migrate them.
	PassportSecretPrevious string

	// AdminJWTSecret signs admin API bearer tokens.
	AdminJWTSecret string

	// AdminActorIDs lists the platform actors that receive moderation
	// notifications (new appeals, company responses).
	AdminActorIDs []id.ActorID

	// MaintenanceInterval is the period of the background sweep
	// (auto-close leave requests, appeal reminders, state expiry).
	MaintenanceInterval time.Duration
}

// RedisConfig captures connection settings for the conversation state store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig captures the notification topic settings. Empty brokers disable
// the Kafka publisher (notifications are then logged only).
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds the configuration from environment variables so main stays
// lean. It validates presence of secrets that are fatal to run without.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:                   getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		PassportSecret:         os.Getenv("PASSPORT_SECRET"),
		PassportSecretPrevious: os.Getenv("PASSPORT_SECRET_PREVIOUS"),
		AdminJWTSecret:         os.Getenv("ADMIN_JWT_SECRET"),
		AdminActorIDs:          parseActorIDs(os.Getenv("ADMIN_ACTOR_IDS")),
		MaintenanceInterval:    getenvDuration("MAINTENANCE_INTERVAL", time.Hour),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getenvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getenvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getenvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getenvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("KAFKA_NOTIFICATIONS_TOPIC", "registry.notifications"),
		},
	}

	if cfg.PassportSecret == "" {
		return Config{}, fmt.Errorf("PASSPORT_SECRET is not set — cannot protect passport data")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.AdminJWTSecret == "" {
		return Config{}, fmt.Errorf("ADMIN_JWT_SECRET is not set")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseActorIDs(s string) []id.ActorID {
	var out []id.ActorID
	for _, part := range splitNonEmpty(s) {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n == 0 {
			continue
		}
		out = append(out, id.ActorID(n))
	}
	return out
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
