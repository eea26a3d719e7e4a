package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	CRMWebhookURL string
	CRMAPIKey     string
	CRMRPS        int

	RelayWorkers     int
	RelayBatch       int
	RelayMaxAttempts int

	ContactRPS   float64
	ContactBurst int
	DedupWindow  time.Duration
	PhoneRegion  string

	// TrustedProxies is a comma-separated list of IPs/CIDRs allowed to set
	// X-Forwarded-For. Empty means the direct peer is the client.
	TrustedProxies string
}

// Load reads .env (when present) and then the process environment.
// Variables already set in the environment win over .env.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}
	return fromEnv()
}

func fromEnv() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer value")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric value")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/academy?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		CRMWebhookURL: env("CRM_WEBHOOK_URL", ""),
		CRMAPIKey:     env("CRM_API_KEY", ""),
		CRMRPS:        atoi("CRM_RPS", 5),

		RelayWorkers:     atoi("RELAY_WORKERS", 4),
		RelayBatch:       atoi("RELAY_BATCH", 100),
		RelayMaxAttempts: atoi("RELAY_MAX_ATTEMPTS", 8),

		ContactRPS:   atof("CONTACT_RPS", 0.2),
		ContactBurst: atoi("CONTACT_BURST", 5),
		DedupWindow:  time.Duration(atoi("DEDUP_WINDOW_SECONDS", 600)) * time.Second,
		PhoneRegion:  env("PHONE_REGION", "IN"),

		TrustedProxies: env("TRUSTED_PROXIES", ""),
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
