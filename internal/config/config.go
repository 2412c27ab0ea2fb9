package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DatabaseURL string
	RedisAddr   string

	KafkaBrokers []string

	JWTSecret []byte

	TaxRate                    float64
	FreeShippingThresholdCents int64
	ShippingFeeCents           int64

	AttentionAge      time.Duration
	NotifySendTimeout time.Duration
	NotifyIdleTimeout time.Duration
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   EnvDefault("REDIS_ADDR", ""),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),

		TaxRate:                    EnvFloatDefault("TAX_RATE", 0.085),
		FreeShippingThresholdCents: EnvInt64Default("FREE_SHIPPING_THRESHOLD_CENTS", 5000),
		ShippingFeeCents:           EnvInt64Default("SHIPPING_FEE_CENTS", 599),

		AttentionAge:      EnvDurationDefault("ATTENTION_AGE", 48*time.Hour),
		NotifySendTimeout: EnvDurationDefault("NOTIFY_SEND_TIMEOUT", 2*time.Second),
		NotifyIdleTimeout: EnvDurationDefault("NOTIFY_IDLE_TIMEOUT", 30*time.Minute),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvInt64Default(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func EnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
