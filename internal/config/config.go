package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const (
	DefaultReminderHour = 9
	DefaultTimezone     = "UTC"
	envPrefix           = "RIDE_ROTA_"
)

// DefaultReminderLeadDays are the days before an event on which reminders are sent
var DefaultReminderLeadDays = []int{3, 1}

// EventTemplate defines a recurring event generated by defineEvents
type EventTemplate struct {
	RRule             string `yaml:"rrule" validate:"required"`
	Label             string `yaml:"label" validate:"required"`
	Icon              string `yaml:"icon,omitempty" validate:"omitempty,max=16"`
	StartTime         string `yaml:"startTime,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime           string `yaml:"endTime,omitempty" validate:"omitempty,datetime=15:04"`
	CapacityDriver    *int   `yaml:"capacityDriver,omitempty" validate:"omitempty,min=0"`
	CapacityAttendant *int   `yaml:"capacityAttendant,omitempty" validate:"omitempty,min=0"`
}

// NotificationsConfig controls email delivery of notifications
type NotificationsConfig struct {
	Email       bool   `yaml:"email"`
	GmailUserID string `yaml:"gmailUserID,omitempty" validate:"required_if=Email true"`
	GmailSender string `yaml:"gmailSender,omitempty" validate:"omitempty,email"`
}

// CalendarConfig controls Google Calendar sync of confirmed selections
type CalendarConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CalendarID string `yaml:"calendarID,omitempty" validate:"required_if=Enabled true"`
}

// Config represents the application configuration
type Config struct {
	DatabaseDriver   string              `yaml:"databaseDriver" env:"DATABASE_DRIVER" validate:"required,oneof=postgres sqlite"`
	DatabaseURL      string              `yaml:"databaseURL" env:"DATABASE_URL" validate:"required"`
	LogLevel         string              `yaml:"logLevel,omitempty" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Timezone         string              `yaml:"timezone,omitempty" validate:"omitempty,timezone"`
	ReminderHour     *int                `yaml:"reminderHour,omitempty" validate:"omitempty,min=0,max=23"`
	ReminderLeadDays []int               `yaml:"reminderLeadDays,omitempty" validate:"dive,min=1"`
	MetricsAddr      string              `yaml:"metricsAddr,omitempty" env:"METRICS_ADDR" validate:"omitempty,hostname_port"`
	Notifications    NotificationsConfig `yaml:"notifications"`
	Calendar         CalendarConfig      `yaml:"calendar"`
	EventTemplates   []EventTemplate     `yaml:"eventTemplates,omitempty" validate:"dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration for the given environment.
// It looks for ride_rota_config.<env>.yaml (or ride_rota_config.yaml when env is empty)
// in the current directory first, then in the user's home directory.
func Load(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads the configuration from a specific path, applies environment
// overrides and defaults, and validates the result
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from RIDE_ROTA_* environment variables.
// Unset variables leave the file values in place.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = "postgres"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.ReminderHour == nil {
		hour := DefaultReminderHour
		cfg.ReminderHour = &hour
	}
	if len(cfg.ReminderLeadDays) == 0 {
		cfg.ReminderLeadDays = append([]int(nil), DefaultReminderLeadDays...)
	}
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, tmpl := range cfg.EventTemplates {
		if _, err := rrule.StrToRRule(tmpl.RRule); err != nil {
			return fmt.Errorf("invalid rrule in eventTemplates[%d]: %w", i, err)
		}
	}

	return nil
}

// Location returns the configured timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReminderHourOrDefault returns the hour of day at which reminders are sent
func (c *Config) ReminderHourOrDefault() int {
	if c.ReminderHour == nil {
		return DefaultReminderHour
	}
	return *c.ReminderHour
}

// NeedsOAuth reports whether any Google integration is enabled
func (c *Config) NeedsOAuth() bool {
	return c.Notifications.Email || c.Calendar.Enabled
}

// findConfigFile locates ride_rota_config[.<env>].yaml
func findConfigFile(env string) (string, error) {
	return findFile(envFileName("ride_rota_config", env, "yaml"))
}

// envFileName builds "<base>.<env>.<ext>", or "<base>.<ext>" when env is empty
func envFileName(base, env, ext string) string {
	if env == "" {
		return base + "." + ext
	}
	return base + "." + env + "." + ext
}

// findFile searches for fileName in the current directory, then the home directory
func findFile(fileName string) (string, error) {
	if _, err := os.Stat(fileName); err == nil {
		return fileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, fileName)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", fileName)
}
