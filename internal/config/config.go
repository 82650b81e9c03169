package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Email        EmailConfig        `yaml:"email"`
	JWT          JWTConfig          `yaml:"jwt"`
	Approval     ApprovalConfig     `yaml:"approval"`
	Availability AvailabilityConfig `yaml:"availability"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// RedisConfig contains the availability-calendar cache settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EmailConfig contains SendGrid settings
type EmailConfig struct {
	APIKey   string `yaml:"api_key"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

// JWTConfig contains portal session token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// RoutingRule maps one applicant grade band to the approver grades required
// per value tier. Tier bounds are inclusive: value <= Tier1Max resolves to
// Tier1Grade, value <= Tier2Max to Tier2Grade, anything above to Tier3Grade.
type RoutingRule struct {
	ApplicantGrade int32 `yaml:"applicant_grade"`
	Tier1Max       int32 `yaml:"tier1_max"`
	Tier2Max       int32 `yaml:"tier2_max"`
	Tier1Grade     int32 `yaml:"tier1_grade"`
	Tier2Grade     int32 `yaml:"tier2_grade"`
	Tier3Grade     int32 `yaml:"tier3_grade"`
}

// ApprovalConfig contains routing and approval-link settings
type ApprovalConfig struct {
	LinkBaseURL   string        `yaml:"link_base_url"`
	TokenTTLDays  int           `yaml:"token_ttl_days"`
	FallbackGrade int32         `yaml:"fallback_grade"`
	Routing       []RoutingRule `yaml:"routing"`
}

// AvailabilityConfig contains calendar cache settings
type AvailabilityConfig struct {
	CalendarTTLMinutes int `yaml:"calendar_ttl_minutes"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	SendApprovalReminders    string `yaml:"send_approval_reminders"`
	SendReturnReminders      string `yaml:"send_return_reminders"`
	ReleaseStaleReservations string `yaml:"release_stale_reservations"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

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

	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.APIKey = val
	}
	if val := os.Getenv("EMAIL_FROM"); val != "" {
		c.Email.From = val
	}

	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	if val := os.Getenv("APPROVAL_LINK_BASE_URL"); val != "" {
		c.Approval.LinkBaseURL = val
	}

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

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if c.Email.From == "" {
		return fmt.Errorf("sender email address is required")
	}

	if c.Approval.LinkBaseURL == "" {
		return fmt.Errorf("approval link base URL is required")
	}
	if c.Approval.TokenTTLDays == 0 {
		c.Approval.TokenTTLDays = 7
	}
	if c.Approval.FallbackGrade == 0 {
		c.Approval.FallbackGrade = 54
	}
	if len(c.Approval.Routing) == 0 {
		c.Approval.Routing = DefaultRouting()
	}

	if c.Availability.CalendarTTLMinutes == 0 {
		c.Availability.CalendarTTLMinutes = 5
	}

	// Scheduler defaults (cron with seconds precision, UTC)
	if c.Scheduler.SendApprovalReminders == "" {
		c.Scheduler.SendApprovalReminders = "0 0 8 * * *" // 8 AM UTC
	}
	if c.Scheduler.SendReturnReminders == "" {
		c.Scheduler.SendReturnReminders = "0 0 9 * * *" // 9 AM UTC
	}
	if c.Scheduler.ReleaseStaleReservations == "" {
		c.Scheduler.ReleaseStaleReservations = "0 30 2 * * *" // 2:30 AM UTC
	}

	return nil
}

// DefaultRouting returns the standard grade/value approval matrix.
func DefaultRouting() []RoutingRule {
	return []RoutingRule{
		{ApplicantGrade: 41, Tier1Max: 5000, Tier2Max: 10000, Tier1Grade: 44, Tier2Grade: 48, Tier3Grade: 52},
		{ApplicantGrade: 44, Tier1Max: 10000, Tier2Max: 20000, Tier1Grade: 48, Tier2Grade: 52, Tier3Grade: 54},
		{ApplicantGrade: 52, Tier1Max: 0, Tier2Max: 0, Tier1Grade: 54, Tier2Grade: 54, Tier3Grade: 54},
	}
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
