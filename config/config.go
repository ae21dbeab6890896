package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBRetries  int

	SnapshotPath   string
	CollectorsFile string
	Schedule       string
	FailOnDegraded bool
	PushgatewayURL string
	MetricsJobName string
	LogLevel       string
	LogFormat      string

	// Airbnb collector settings.
	MaxConcurrency  int
	RateLimitMs     int
	MaxRetries      int
	PagesToScrape   int
	ListingsPerPage int
	ChromeBin       string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "parser"),
		DBPassword: getEnv("DB_PASSWORD", "parser"),
		DBName:     getEnv("DB_NAME", "listings"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBRetries:  getEnvInt("DB_CONNECT_RETRIES", 5),

		SnapshotPath:   getEnv("SNAPSHOT_PATH", "result.xlsx"),
		CollectorsFile: getEnv("COLLECTORS_CONFIG", "config.yaml"),
		Schedule:       getEnv("SCHEDULE", "0 6 * * *"),
		FailOnDegraded: getEnvBool("FAIL_ON_DEGRADED", false),
		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		MetricsJobName: getEnv("METRICS_JOB", "listings_aggregator"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),

		MaxConcurrency:  getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:     getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		PagesToScrape:   getEnvInt("PAGES_TO_SCRAPE", 2),
		ListingsPerPage: getEnvInt("LISTINGS_PER_PAGE", 5),
		ChromeBin:       getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" port=" + c.DBPort +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" sslmode=" + c.DBSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}
