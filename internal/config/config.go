package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Cart     CartConfig
	Checkout CheckoutConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CartConfig struct {
	TTL time.Duration
}

type CheckoutConfig struct {
	RateLimit       int
	RateWindow      time.Duration
	IdempotencyTTL  time.Duration
	IdempotencyLock time.Duration
}

// New reads configuration from the environment, loading a local .env file
// first when present. Postgres credentials are required, everything else
// has a development default.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	serverCfg := ServerConfig{
		Host:           stringEnv("SERVER_HOST", "localhost"),
		Port:           serverPort,
		AllowedOrigins: listEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	pgPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	pgMaxConns, err := intEnv("POSTGRES_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	pgUser := os.Getenv("POSTGRES_USER")
	if pgUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	pgPassword := os.Getenv("POSTGRES_PASSWORD")
	if pgPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	pgName := os.Getenv("POSTGRES_DB")
	if pgName == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresCfg := PostgresConfig{
		User:     pgUser,
		Password: pgPassword,
		Name:     pgName,
		Host:     stringEnv("POSTGRES_HOST", "localhost"),
		Port:     pgPort,
		SSLMode:  stringEnv("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(pgMaxConns),
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     stringEnv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	cartTTL, err := durationEnv("CART_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rateLimit, err := intEnv("CHECKOUT_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rateWindow, err := durationEnv("CHECKOUT_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	idemTTL, err := durationEnv("CHECKOUT_IDEMPOTENCY_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	idemLock, err := durationEnv("CHECKOUT_IDEMPOTENCY_LOCK", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Config{
		Server:   serverCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		Cart:     CartConfig{TTL: cartTTL},
		Checkout: CheckoutConfig{
			RateLimit:       rateLimit,
			RateWindow:      rateWindow,
			IdempotencyTTL:  idemTTL,
			IdempotencyLock: idemLock,
		},
	}, nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return d, nil
}

func listEnv(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return def
	}

	return out
}
