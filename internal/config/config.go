package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	DBConn        string
	LogLevel      string
	CronSecret    string
	JobSchedule   string // optional cron expression for the in-process trigger
	JobTimeout    time.Duration
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SenderEmail   string
	OpsAlertEmail string
}

// NewConfig loads configuration from environment variables. A .env file
// in the working directory is loaded first if present.
func NewConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5432 user=agency password=agency dbname=agency sslmode=disable"),
		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		CronSecret:    getEnv("CRON_SECRET", ""),
		JobSchedule:   getEnv("JOB_SCHEDULE", ""),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", "jobs@agency-service.local"),
		OpsAlertEmail: getEnv("OPS_ALERT_EMAIL", ""),
	}

	timeoutSec, err := strconv.Atoi(getEnv("JOB_TIMEOUT_SECONDS", "300"))
	if err != nil || timeoutSec <= 0 {
		return nil, fmt.Errorf("JOB_TIMEOUT_SECONDS must be a positive integer")
	}
	cfg.JobTimeout = time.Duration(timeoutSec) * time.Second

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.CronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
