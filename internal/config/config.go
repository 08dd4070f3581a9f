package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	AppPort  string
	AppURL   string
	LogLevel string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	JWTSecret string
	JWTTTL    time.Duration

	MailDriver   string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	AdminEmail   string
	BccAdmin     bool

	QueueWorkers      int
	QueuePollInterval time.Duration
	EmbeddedWorkers   bool

	NotificationRateLimit int
	LoginRateLimit        int
	StatisticsTTL         time.Duration

	OpenAIAPIKey string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load(".env")

	return &Config{
		AppEnv:   getEnv("APP_ENV", "production"),
		AppPort:  getEnv("APP_PORT", "8080"),
		AppURL:   strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "projectuser"),
		DBPassword: getEnv("DB_PASSWORD", "projectpassword"),
		DBName:     getEnv("DB_NAME", "project_management"),
		DBPath:     getEnv("DB_PATH", "project_management.db"),

		JWTSecret: getEnv("JWT_SECRET", "default-secret-key-change-me"),
		JWTTTL:    getDuration("JWT_TTL", 24*time.Hour),

		MailDriver:   strings.ToLower(getEnv("MAIL_DRIVER", "log")),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "Project Management <no-reply@example.com>"),
		AdminEmail:   getEnv("ADMIN_EMAIL", ""),
		BccAdmin:     getBool("MAIL_BCC_ADMIN", false),

		QueueWorkers:      getInt("QUEUE_WORKERS", 2),
		QueuePollInterval: getDuration("QUEUE_POLL_INTERVAL", time.Second),
		EmbeddedWorkers:   getBool("QUEUE_EMBEDDED_WORKERS", true),

		NotificationRateLimit: getInt("NOTIFICATION_RATE_LIMIT", 10),
		LoginRateLimit:        getInt("LOGIN_RATE_LIMIT", 5),
		StatisticsTTL:         getDuration("STATISTICS_TTL", 5*time.Minute),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
	}
}

// IsDevelopment reports whether the app runs in a local development environment.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "local"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
