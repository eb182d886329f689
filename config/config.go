/*
Package config loads the server configuration.

PURPOSE:
  Reads environment variables (and a .env file when one exists) into a
  typed Config with defaults. Command-line flags in cmd/server override
  the few values operators change most often.

KEYS:
  PORT                     HTTP port (8080)
  DATABASE_PATH            SQLite file (worktime.db)
  DATABASE_DRIVER          sqlite3 (cgo) or sqlite (pure Go)
  LOG_LEVEL / LOG_PRETTY   Logger settings
  CORS_ORIGINS             Comma-separated allowed origins
  HOLIDAY_REGION           German state code for holidays (BY)
  EDITABLE_DAYS            Days back employees may edit entries (0 = today)
  MIN_REST_HOURS           Minimum rest between working days (11)
  DAILY_WARN_HOURS         Regular daily maximum (8)
  DAILY_MAX_HOURS          Hard daily ceiling (10)
  WEEKLY_WARN_HOURS        Weekly maximum (48)
  NIGHT_WORKER_THRESHOLD   Night-work days per year (48)
  SCHEDULER_ENABLED        Run the nightly jobs (true)
  HOLIDAY_SYNC_SCHEDULE    Cron spec with seconds (0 0 3 * * *)
  LEDGER_REFRESH_SCHEDULE  Cron spec with seconds (0 30 3 * * *)

SEE ALSO:
  - cmd/server/main.go: Flag overrides and wiring
  - compliance/rules.go: Statutory defaults
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/warp/worktime-engine/compliance"
	"github.com/warp/worktime-engine/generic"
	"github.com/warp/worktime-engine/holidays"
)

// Config holds application configuration
type Config struct {
	Port           int
	DatabasePath   string
	DatabaseDriver string
	LogLevel       string
	LogPretty      bool
	CORSOrigins    []string

	HolidayRegion string
	EditableDays  int

	MinRestHours         decimal.Decimal
	DailyWarnHours       decimal.Decimal
	DailyMaxHours        decimal.Decimal
	WeeklyWarnHours      decimal.Decimal
	NightWorkerThreshold int

	SchedulerEnabled      bool
	HolidaySyncSchedule   string
	LedgerRefreshSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvAsInt("PORT", 8080),
		DatabasePath:   getEnv("DATABASE_PATH", "worktime.db"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite3"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("LOG_PRETTY", true),
		CORSOrigins:    getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),

		HolidayRegion: strings.ToUpper(getEnv("HOLIDAY_REGION", "BY")),
		EditableDays:  getEnvAsInt("EDITABLE_DAYS", 0),

		MinRestHours:         getEnvAsDecimal("MIN_REST_HOURS", 11),
		DailyWarnHours:       getEnvAsDecimal("DAILY_WARN_HOURS", 8),
		DailyMaxHours:        getEnvAsDecimal("DAILY_MAX_HOURS", 10),
		WeeklyWarnHours:      getEnvAsDecimal("WEEKLY_WARN_HOURS", 48),
		NightWorkerThreshold: getEnvAsInt("NIGHT_WORKER_THRESHOLD", 48),

		SchedulerEnabled:      getEnvAsBool("SCHEDULER_ENABLED", true),
		HolidaySyncSchedule:   getEnv("HOLIDAY_SYNC_SCHEDULE", "0 0 3 * * *"),
		LedgerRefreshSchedule: getEnv("LEDGER_REFRESH_SCHEDULE", "0 30 3 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DatabaseDriver != "sqlite3" && c.DatabaseDriver != "sqlite" {
		return fmt.Errorf("DATABASE_DRIVER must be sqlite3 or sqlite, got %q", c.DatabaseDriver)
	}
	if !holidays.ValidState(c.HolidayRegion) {
		return fmt.Errorf("HOLIDAY_REGION %q is not a German state code", c.HolidayRegion)
	}
	if c.EditableDays < 0 {
		return fmt.Errorf("EDITABLE_DAYS must not be negative")
	}
	if !c.MinRestHours.IsPositive() {
		return fmt.Errorf("MIN_REST_HOURS must be positive")
	}
	if !c.DailyWarnHours.IsPositive() || c.DailyMaxHours.LessThan(c.DailyWarnHours) {
		return fmt.Errorf("DAILY_WARN_HOURS must be positive and not above DAILY_MAX_HOURS")
	}
	if !c.WeeklyWarnHours.IsPositive() {
		return fmt.Errorf("WEEKLY_WARN_HOURS must be positive")
	}
	if c.NightWorkerThreshold <= 0 {
		return fmt.Errorf("NIGHT_WORKER_THRESHOLD must be positive")
	}
	if c.SchedulerEnabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		for key, spec := range map[string]string{
			"HOLIDAY_SYNC_SCHEDULE":   c.HolidaySyncSchedule,
			"LEDGER_REFRESH_SCHEDULE": c.LedgerRefreshSchedule,
		} {
			if _, err := parser.Parse(spec); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

// Rules returns the compliance thresholds: the statutory defaults with the
// configured values applied.
func (c *Config) Rules() compliance.Rules {
	rules := compliance.DefaultRules()
	rules.MinRest = generic.HoursFromDecimal(c.MinRestHours)
	rules.DailyWarn = generic.HoursFromDecimal(c.DailyWarnHours)
	rules.DailyMax = generic.HoursFromDecimal(c.DailyMaxHours)
	rules.WeeklyWarn = generic.HoursFromDecimal(c.WeeklyWarnHours)
	rules.NightWorkerThreshold = c.NightWorkerThreshold
	return rules
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue int64) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return decimal.NewFromInt(defaultValue)
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
