// Package config loads process configuration from the environment, an
// optional YAML file and a local .env file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the root configuration of the dossier server.
type Config struct {
	Server   Server         `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Log      LogConfig      `yaml:"log"`
	Reminder ReminderConfig `yaml:"reminder"`
	Jobs     JobsConfig     `yaml:"jobs"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"             env:"DOSSIER_ADDR"            env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"5m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"  env:"JWT_SIGNING_KEY"         env-default:"dev-secret-key-change-in-production"`
	JWTIssuer       string        `yaml:"jwt_issuer"       env:"JWT_ISSUER"`
}

// DatabaseConfig holds PostgreSQL settings. An empty DSN selects the
// in-memory stores.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"               env:"DATABASE_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"DATABASE_MAX_OPEN_CONNS"    env-default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"DATABASE_MAX_IDLE_CONNS"    env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME" env-default:"1h"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"  env:"DATABASE_MIGRATE_ON_START"  env-default:"true"`
}

// RedisConfig holds Redis settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `yaml:"url"            env:"REDIS_URL"`
	PoolSize     int           `yaml:"pool_size"      env:"REDIS_POOL_SIZE"      env-default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`
	DialTimeout  time.Duration `yaml:"dial_timeout"   env:"REDIS_DIAL_TIMEOUT"   env-default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout"   env:"REDIS_READ_TIMEOUT"   env-default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout"  env:"REDIS_WRITE_TIMEOUT"  env-default:"3s"`
}

// KafkaConfig holds the notification push settings. No brokers disables push.
type KafkaConfig struct {
	Brokers           []string      `yaml:"brokers"            env:"KAFKA_BROKERS"            env-separator:","`
	Topic             string        `yaml:"topic"              env:"KAFKA_TOPIC"              env-default:"notifications"`
	CreateTopic       bool          `yaml:"create_topic"       env:"KAFKA_CREATE_TOPIC"       env-default:"true"`
	Partitions        int32         `yaml:"partitions"         env:"KAFKA_PARTITIONS"         env-default:"3"`
	ReplicationFactor int16         `yaml:"replication_factor" env:"KAFKA_REPLICATION_FACTOR" env-default:"1"`
	BreakerFailures   int           `yaml:"breaker_failures"   env:"KAFKA_BREAKER_FAILURES"   env-default:"5"`
	BreakerCooldown   time.Duration `yaml:"breaker_cooldown"   env:"KAFKA_BREAKER_COOLDOWN"   env-default:"30s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// ReminderConfig tunes the reminder pipeline.
type ReminderConfig struct {
	Timezone    string        `yaml:"timezone"     env:"ORG_TIMEZONE"         env-default:"America/Mexico_City"`
	CallTimeout time.Duration `yaml:"call_timeout" env:"REMINDER_CALL_TIMEOUT" env-default:"10s"`
	Concurrency int           `yaml:"concurrency"  env:"REMINDER_CONCURRENCY"  env-default:"8"`
	ClaimTTL    time.Duration `yaml:"claim_ttl"    env:"REMINDER_CLAIM_TTL"    env-default:"6h"`
}

// JobsConfig sets the cadence of the standard jobs. Times are HH:MM in the
// organizational timezone.
type JobsConfig struct {
	AutoStart                 bool   `yaml:"auto_start"                  env:"JOBS_AUTO_START"                  env-default:"true"`
	RemindersAt               string `yaml:"reminders_at"                env:"JOBS_REMINDERS_AT"                env-default:"08:00"`
	MaintenanceAt             string `yaml:"maintenance_at"              env:"JOBS_MAINTENANCE_AT"              env-default:"02:00"`
	CleanupAt                 string `yaml:"cleanup_at"                  env:"JOBS_CLEANUP_AT"                  env-default:"03:00"`
	CleanupWeekday            string `yaml:"cleanup_weekday"             env:"JOBS_CLEANUP_WEEKDAY"             env-default:"sunday"`
	ReportAt                  string `yaml:"report_at"                   env:"JOBS_REPORT_AT"                   env-default:"09:00"`
	ReportWeekday             string `yaml:"report_weekday"              env:"JOBS_REPORT_WEEKDAY"              env-default:"monday"`
	LogRetentionMonths        int    `yaml:"log_retention_months"        env:"JOBS_LOG_RETENTION_MONTHS"        env-default:"6"`
	NotificationRetentionDays int    `yaml:"notification_retention_days" env:"JOBS_NOTIFICATION_RETENTION_DAYS" env-default:"30"`
	ReportWindowDays          int    `yaml:"report_window_days"          env:"JOBS_REPORT_WINDOW_DAYS"          env-default:"7"`
}

// Load reads configuration. Priority: ENV > YAML (CONFIG_PATH) > defaults. A
// .env file in the working directory is loaded into the environment first
// when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if _, err := c.Reminder.Location(); err != nil {
		return err
	}
	if c.Reminder.Concurrency < 1 {
		return fmt.Errorf("reminder concurrency must be at least 1")
	}
	if c.Reminder.CallTimeout <= 0 {
		return fmt.Errorf("reminder call timeout must be positive")
	}
	for name, clock := range map[string]string{
		"reminders_at":   c.Jobs.RemindersAt,
		"maintenance_at": c.Jobs.MaintenanceAt,
		"cleanup_at":     c.Jobs.CleanupAt,
		"report_at":      c.Jobs.ReportAt,
	} {
		if _, _, err := ParseClock(clock); err != nil {
			return fmt.Errorf("jobs %s: %w", name, err)
		}
	}
	for name, day := range map[string]string{
		"cleanup_weekday": c.Jobs.CleanupWeekday,
		"report_weekday":  c.Jobs.ReportWeekday,
	} {
		if _, err := ParseWeekday(day); err != nil {
			return fmt.Errorf("jobs %s: %w", name, err)
		}
	}
	if c.Jobs.LogRetentionMonths < 1 || c.Jobs.NotificationRetentionDays < 1 || c.Jobs.ReportWindowDays < 1 {
		return fmt.Errorf("jobs retention and report windows must be positive")
	}
	return nil
}

// Location resolves the organizational timezone.
func (r ReminderConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// ParseClock parses an HH:MM time of day.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

// ParseWeekday parses an English weekday name, case-insensitively.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}
