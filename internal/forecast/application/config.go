package application

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	forecast "estate-billing/internal/forecast/domain"
)

// ScheduleConfig defines when the nightly forecast run fires.
type ScheduleConfig struct {
	DailyAt string `yaml:"daily_at"`
}

// Config defines forecast configuration.
type Config struct {
	HistoryMonths int            `yaml:"history_months"`
	HorizonMonths int            `yaml:"horizon_months"`
	Schedule      ScheduleConfig `yaml:"schedule"`
	WebhookURL    string         `yaml:"webhook_url"`
}

// LoadConfig loads config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		HistoryMonths: getenvIntDefault("FORECAST_HISTORY_MONTHS", 12),
		HorizonMonths: getenvIntDefault("FORECAST_HORIZON_MONTHS", forecast.DefaultHorizonMonths),
		WebhookURL:    os.Getenv("FORECAST_WEBHOOK_URL"),
	}

	if path := os.Getenv("FORECAST_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Schedule.DailyAt == "" {
		cfg.Schedule.DailyAt = getenvDefault("FORECAST_DAILY_AT", "00:00")
	}
	if cfg.WebhookURL == "" {
		cfg.WebhookURL = os.Getenv("FORECAST_WEBHOOK_URL")
	}
	if cfg.HistoryMonths < forecast.MinHistoryPoints {
		return cfg, errors.New("forecast: history_months below minimum")
	}
	if cfg.HorizonMonths < 1 {
		return cfg, errors.New("forecast: horizon_months must be positive")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
