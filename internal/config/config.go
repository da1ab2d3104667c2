package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeLocal AuthMode = "local" // Local user database with sessions
)

type (
	Config struct {
		HTTP
		Global
		Database
		Circulation
		Audit
		Maintenance
		Tasks
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
		// BusyTimeout bounds how long a transaction waits on a
		// conflicting lock before aborting with a busy error.
		BusyTimeout time.Duration
	}

	Circulation struct {
		LoanPeriodDays int
		// MaxRetries/RetryDelay control the bounded retry of a whole
		// transactional unit after a transient lock failure.
		MaxRetries int
		RetryDelay time.Duration
	}

	Audit struct {
		RetentionDays int // Days to keep staff log entries (default: 365)
	}

	Maintenance struct {
		OverdueSweepEnabled  bool
		OverdueSweepSchedule string // Cron format: "0 * * * *" = hourly
		AuditCleanupSchedule string // Cron format: "30 3 * * *" = nightly
	}

	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}

	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
		LockoutDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_busy_timeout", "5s")

	// Circulation defaults
	v.SetDefault("loan_period_days", DefaultLoanPeriodDays)
	v.SetDefault("circulation_max_retries", 3)
	v.SetDefault("circulation_retry_delay", "25ms")

	// Audit defaults
	v.SetDefault("audit_retention_days", 365)

	// Maintenance defaults
	v.SetDefault("overdue_sweep_enabled", true)
	v.SetDefault("overdue_sweep_schedule", "0 * * * *")  // Hourly at :00
	v.SetDefault("audit_cleanup_schedule", "30 3 * * *") // Nightly at 03:30

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_token_expiry", "720h")    // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)         // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)    // HTTPS-only cookies
	v.SetDefault("auth_lockout_duration", "30m") // Lockout duration

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path:        v.GetString("DATABASE_PATH"),
			BusyTimeout: v.GetDuration("DATABASE_BUSY_TIMEOUT"),
		},
		Circulation: Circulation{
			LoanPeriodDays: v.GetInt("LOAN_PERIOD_DAYS"),
			MaxRetries:     v.GetInt("CIRCULATION_MAX_RETRIES"),
			RetryDelay:     v.GetDuration("CIRCULATION_RETRY_DELAY"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
		Maintenance: Maintenance{
			OverdueSweepEnabled:  v.GetBool("OVERDUE_SWEEP_ENABLED"),
			OverdueSweepSchedule: v.GetString("OVERDUE_SWEEP_SCHEDULE"),
			AuditCleanupSchedule: v.GetString("AUDIT_CLEANUP_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			Mode:            AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:   v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:     v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
			LockoutDuration: v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
	}
}
