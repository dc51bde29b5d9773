package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction = "production"

	devJWTSecret = "dev-secret-change-me"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set in production")

// DefaultAllowedOrigins is used when CORS_ALLOWED_ORIGINS is unset.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"https://vocal-mooncake-50fc69.netlify.app",
}

type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Uploads  UploadsConfig
	Metrics  MetricsConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	Environment    string
	BodyLimit      int64
	RequestTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

type UploadsConfig struct {
	Dir      string
	MaxBytes int64
}

type MetricsConfig struct {
	Enabled bool
	Port    string
}

type SecurityConfig struct {
	TLSEnabled bool
	CertFile   string
	KeyFile    string
	JWTSecret  string
	TokenTTL   time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads the process environment once, after merging an optional .env
// file from the working directory. Variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			Host:           getEnv("HOST", "0.0.0.0"),
			Environment:    getEnv("NODE_ENV", "development"),
			BodyLimit:      int64(getEnvInt("BODY_LIMIT_BYTES", 100*1024)),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		MongoDB: MongoDBConfig{
			URI:      os.Getenv("MONGODB_URI"),
			Database: getEnv("MONGODB_DATABASE", "jobportal"),
			Timeout:  getEnvDuration("MONGODB_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", DefaultAllowedOrigins),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
		},
		Uploads: UploadsConfig{
			Dir:      getEnv("UPLOADS_DIR", "uploads"),
			MaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 5<<20)),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnv("METRICS_PORT", "9090"),
		},
		Security: SecurityConfig{
			TLSEnabled: getEnvBool("TLS_ENABLED", false),
			CertFile:   getEnv("TLS_CERT_FILE", ""),
			KeyFile:    getEnv("TLS_KEY_FILE", ""),
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Security.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingJWTSecret
		}
		cfg.Security.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks. The default
// slice is copied so callers never share the package-level list.
func getEnvList(key string, defaultValue []string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		out = append(out, defaultValue...)
	}
	return out
}
