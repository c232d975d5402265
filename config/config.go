package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBDriver string // sqlite or postgres
	DBPath   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ZillowBaseURL     string
	SearchPath        string
	UserAgent         string
	AcceptLanguage    string
	HTTPTimeout       time.Duration
	WarmUpMode        string // http or browser
	ChromeBin         string
	CloudflareBypass  bool
	SearchQueryFile   string
	InsertConcurrency int
	InsertRateLimitMs int
	MaxRetries        int

	HTTPAddr           string
	CORSAllowedOrigins []string

	CSVOutputPath string
	LogLevel      string
	LogFormat     string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:   getEnv("DB_PATH", "./listings.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "listings"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "listings"),
		PostgresDB:       getEnv("POSTGRES_DB", "listings"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ZillowBaseURL: getEnv("ZILLOW_BASE_URL", "https://www.zillow.com"),
		SearchPath:    getEnv("ZILLOW_SEARCH_PATH", "/async-create-search-page-state"),
		UserAgent: getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) "+
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		AcceptLanguage:    getEnv("ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
		HTTPTimeout:       getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		WarmUpMode:        strings.ToLower(getEnv("WARMUP_MODE", "http")),
		ChromeBin:         getEnv("CHROME_BIN", ""),
		CloudflareBypass:  getEnvBool("CLOUDFLARE_BYPASS", true),
		SearchQueryFile:   getEnv("SEARCH_QUERY_FILE", ""),
		InsertConcurrency: getEnvInt("INSERT_CONCURRENCY", 4),
		InsertRateLimitMs: getEnvInt("INSERT_RATE_LIMIT_MS", 0),
		MaxRetries:        getEnvInt("MAX_RETRIES", 10),

		HTTPAddr: getEnv("HTTP_ADDR", ":5000"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS",
			[]string{"http://localhost:3000", "https://prodocker.netlify.app"}),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// DataSource returns the driver-specific connection string for DBDriver.
func (c *Config) DataSource() string {
	if c.DBDriver == "postgres" {
		return c.DSN()
	}
	return c.DBPath
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
