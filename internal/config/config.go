package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Email     EmailConfig     `yaml:"email"`
	Redis     RedisConfig     `yaml:"redis"`
	Push      PushConfig      `yaml:"push"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP and gRPC listener settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "memory"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	// SeedFile is loaded into the memory driver on startup
	SeedFile string `yaml:"seed_file"`
}

// EmailConfig selects the email provider and the async queue sizing
type EmailConfig struct {
	Provider       string     `yaml:"provider"` // "smtp", "sendgrid", "resend" or "none"
	From           string     `yaml:"from"`
	SMTP           SMTPConfig `yaml:"smtp"`
	SendGridAPIKey string     `yaml:"sendgrid_api_key"`
	ResendAPIKey   string     `yaml:"resend_api_key"`
	Workers        int        `yaml:"workers"`
	QueueSize      int        `yaml:"queue_size"`
	MaxRetries     int        `yaml:"max_retries"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// RedisConfig enables the live notification channel when URL is set
type RedisConfig struct {
	URL string `yaml:"url"`
}

// PushConfig enables Firebase Cloud Messaging
type PushConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// WorkflowConfig holds the group formation and approval chain rules
type WorkflowConfig struct {
	InvitationTTLHours int                `yaml:"invitation_ttl_hours"`
	MaxStudents        int                `yaml:"max_students"`
	MaxSupervisors     int                `yaml:"max_supervisors"`
	MaxCoSupervisors   int                `yaml:"max_co_supervisors"`
	ApprovalSequences  map[string][]int32 `yaml:"approval_sequences"`
}

// SweepConfig holds the windows used by the expiry and reminder sweep
type SweepConfig struct {
	ReminderWindowMinutes     int `yaml:"reminder_window_minutes"`
	ReminderDedupeMinutes     int `yaml:"reminder_dedupe_minutes"`
	StaleAfterHours           int `yaml:"stale_after_hours"`
	StaleDedupeHours          int `yaml:"stale_dedupe_hours"`
	NotificationRetentionDays int `yaml:"notification_retention_days"`
	InvitationRetentionDays   int `yaml:"invitation_retention_days"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	RemindExpiringInvitations string `yaml:"remind_expiring_invitations"`
	ExpireStaleInvitations    string `yaml:"expire_stale_invitations"`
	PurgeOldRecords           string `yaml:"purge_old_records"`
	RemindStaleApprovals      string `yaml:"remind_stale_approvals"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes, applying env overrides and defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_DRIVER"); val != "" {
		c.Database.Driver = val
	}
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Email
	if val := os.Getenv("EMAIL_PROVIDER"); val != "" {
		c.Email.Provider = val
	}
	if val := os.Getenv("EMAIL_FROM"); val != "" {
		c.Email.From = val
	}
	if val := os.Getenv("SMTP_HOST"); val != "" {
		c.Email.SMTP.Host = val
	}
	if val := os.Getenv("SMTP_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Email.SMTP.Port)
	}
	if val := os.Getenv("SMTP_USER"); val != "" {
		c.Email.SMTP.User = val
	}
	if val := os.Getenv("SMTP_PASSWORD"); val != "" {
		c.Email.SMTP.Password = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.SendGridAPIKey = val
	}
	if val := os.Getenv("RESEND_API_KEY"); val != "" {
		c.Email.ResendAPIKey = val
	}

	// Realtime
	if val := os.Getenv("REDIS_URL"); val != "" {
		c.Redis.URL = val
	}
	if val := os.Getenv("FIREBASE_CREDENTIALS_FILE"); val != "" {
		c.Push.CredentialsFile = val
		c.Push.Enabled = true
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = c.Server.Port + 1
	}

	// Database validation
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	// Email validation
	if c.Email.Provider == "" {
		c.Email.Provider = "none"
	}
	if c.Email.From == "" {
		c.Email.From = "noreply@gpms.edu.ye"
	}
	switch strings.ToLower(c.Email.Provider) {
	case "smtp":
		if c.Email.SMTP.Host == "" {
			return fmt.Errorf("SMTP host is required")
		}
		if c.Email.SMTP.Port <= 0 || c.Email.SMTP.Port > 65535 {
			return fmt.Errorf("invalid SMTP port: %d", c.Email.SMTP.Port)
		}
	case "sendgrid":
		if c.Email.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid api key is required")
		}
	case "resend":
		if c.Email.ResendAPIKey == "" {
			return fmt.Errorf("resend api key is required")
		}
	case "none":
	default:
		return fmt.Errorf("unsupported email provider: %s", c.Email.Provider)
	}
	if c.Email.Workers <= 0 {
		c.Email.Workers = 2
	}
	if c.Email.QueueSize <= 0 {
		c.Email.QueueSize = 256
	}
	if c.Email.MaxRetries <= 0 {
		c.Email.MaxRetries = 3
	}

	if c.Push.Enabled && c.Push.CredentialsFile == "" {
		return fmt.Errorf("push credentials file is required when push is enabled")
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	// Workflow defaults
	if c.Workflow.InvitationTTLHours <= 0 {
		c.Workflow.InvitationTTLHours = 48
	}
	if c.Workflow.MaxStudents <= 0 {
		c.Workflow.MaxStudents = 5
	}
	if c.Workflow.MaxSupervisors <= 0 {
		c.Workflow.MaxSupervisors = 3
	}
	if c.Workflow.MaxCoSupervisors <= 0 {
		c.Workflow.MaxCoSupervisors = 2
	}
	if c.Workflow.ApprovalSequences == nil {
		c.Workflow.ApprovalSequences = map[string][]int32{}
	}
	for name, levels := range DefaultApprovalSequences() {
		if len(c.Workflow.ApprovalSequences[name]) == 0 {
			c.Workflow.ApprovalSequences[name] = levels
		}
	}
	for name, levels := range c.Workflow.ApprovalSequences {
		for _, l := range levels {
			if l < 1 || l > 4 {
				return fmt.Errorf("approval sequence %s has invalid level %d", name, l)
			}
		}
	}

	// Sweep defaults
	if c.Sweep.ReminderWindowMinutes <= 0 {
		c.Sweep.ReminderWindowMinutes = 60
	}
	if c.Sweep.ReminderDedupeMinutes <= 0 {
		c.Sweep.ReminderDedupeMinutes = 120
	}
	if c.Sweep.StaleAfterHours <= 0 {
		c.Sweep.StaleAfterHours = 24
	}
	if c.Sweep.StaleDedupeHours <= 0 {
		c.Sweep.StaleDedupeHours = 24
	}
	if c.Sweep.NotificationRetentionDays <= 0 {
		c.Sweep.NotificationRetentionDays = 90
	}
	if c.Sweep.InvitationRetentionDays <= 0 {
		c.Sweep.InvitationRetentionDays = 30
	}

	// Scheduler defaults
	if c.Scheduler.RemindExpiringInvitations == "" {
		c.Scheduler.RemindExpiringInvitations = "0 0 * * * *" // Hourly
	}
	if c.Scheduler.ExpireStaleInvitations == "" {
		c.Scheduler.ExpireStaleInvitations = "0 0 */6 * * *" // Every 6 hours
	}
	if c.Scheduler.PurgeOldRecords == "" {
		c.Scheduler.PurgeOldRecords = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.RemindStaleApprovals == "" {
		c.Scheduler.RemindStaleApprovals = "0 0 */12 * * *" // Every 12 hours
	}

	return nil
}

// DefaultApprovalSequences returns the built-in approval chains
func DefaultApprovalSequences() map[string][]int32 {
	return map[string][]int32{
		"single_department": {1, 2},
		"multi_department":  {1, 2, 3},
		"multi_college":     {1, 2, 3, 4},
		"external":          {1, 2},
		"government":        {1, 2, 3, 4},
	}
}

// InvitationTTL returns the invitation lifetime
func (c *Config) InvitationTTL() time.Duration {
	return time.Duration(c.Workflow.InvitationTTLHours) * time.Hour
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetGRPCAddress returns the gRPC health server address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
