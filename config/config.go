package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	SQLite   SQLiteConfig
	Log      LogConfig
	PayApp   PayAppConfig
	Payments PaymentsConfig
	Email    EmailConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName   string
	ShopName      string
	PublicBaseURL string
}

type ServerConfig struct {
	Host string
	Port string
}

type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	BusyTimeout  time.Duration
}

type LogConfig struct {
	Level string
}

type PayAppConfig struct {
	APIURL      string
	UserID      string
	LinkKey     string
	LinkValue   string
	HTTPTimeout time.Duration
}

type PaymentsConfig struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	CatalogPath  string
}

type EmailConfig struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	To       string
}

type JobsConfig struct {
	DispatchInterval time.Duration
	BatchSize        int32
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		return nil, errors.New("SQLITE_PATH environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName:   getEnv("APP_SERVICE_NAME", "kiosk-payments"),
			ShopName:      getEnv("APP_SHOP_NAME", "Moving Theater"),
			PublicBaseURL: getEnv("APP_PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		SQLite: SQLiteConfig{
			Path:         sqlitePath,
			MaxOpenConns: getIntEnv("SQLITE_MAX_OPEN_CONNS", 1),
			BusyTimeout:  getSecondsEnv("SQLITE_BUSY_TIMEOUT_SECONDS", 5*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		PayApp: PayAppConfig{
			APIURL:      getEnv("PAYAPP_API_URL", "https://api.payapp.kr/oapi/apiLoad.html"),
			UserID:      getEnv("PAYAPP_USERID", ""),
			LinkKey:     getEnv("PAYAPP_LINKKEY", ""),
			LinkValue:   getEnv("PAYAPP_LINKVALUE", ""),
			HTTPTimeout: getSecondsEnv("PAYAPP_HTTP_TIMEOUT_SECONDS", 15*time.Second),
		},
		Payments: PaymentsConfig{
			PollInterval: getMillisEnv("PAYMENTS_POLL_INTERVAL_MS", 2*time.Second),
			PollTimeout:  getMillisEnv("PAYMENTS_POLL_TIMEOUT_MS", 3*time.Minute),
			CatalogPath:  getEnv("PAYMENTS_CATALOG_PATH", "data/props.json"),
		},
		Email: EmailConfig{
			SMTPHost: getEnv("EMAIL_SMTP_HOST", ""),
			SMTPPort: getIntEnv("EMAIL_SMTP_PORT", 587),
			Username: getEnv("EMAIL_USER", ""),
			Password: getEnv("EMAIL_PASS", ""),
			From:     getEnv("EMAIL_FROM", ""),
			To:       getEnv("EMAIL_TO", ""),
		},
		Jobs: JobsConfig{
			DispatchInterval: getSecondsEnv("JOBS_DISPATCH_INTERVAL_SECONDS", 30*time.Second),
			BatchSize:        int32(getIntEnv("JOBS_BATCH_SIZE", 100)),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if millis, err := strconv.Atoi(value); err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return defaultValue
}
