package config

import (
	"os"
	"strconv"
	"time"

	"bidbook/utils"
)

// App holds the environment configuration for the service. Empty
// DATABASE_URL selects the in-memory store; empty REDIS_ADDR keeps
// notification push in-process only.
type App struct {
	Port        string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StripeKey    string
	PredictorURL string

	SMTPAddr     string
	SMTPHost     string
	SMTPFrom     string
	SMTPUser     string
	SMTPPassword string

	BiddingWindow time.Duration
	TickInterval  time.Duration
}

// Load reads the configuration from the environment
func Load() App {
	return App{
		Port:          getenv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getint("REDIS_DB", 0),
		StripeKey:     os.Getenv("STRIPE_SECRET_KEY"),
		PredictorURL:  os.Getenv("PREDICTOR_URL"),
		SMTPAddr:      os.Getenv("SMTP_ADDR"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPFrom:      getenv("SMTP_FROM", "no-reply@bidbook.local"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		BiddingWindow: getduration("BIDDING_WINDOW", 24*time.Hour),
		TickInterval:  getduration("SCHEDULER_INTERVAL", time.Minute),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		utils.Warn("config: invalid integer value, using default", map[string]any{"key": key, "value": v})
		return def
	}
	return n
}

func getduration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		utils.Warn("config: invalid duration value, using default", map[string]any{"key": key, "value": v})
		return def
	}
	return d
}
