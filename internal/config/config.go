package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mail      MailConfig      `mapstructure:"mail"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// MailConfig holds outbound mail provider configuration.
// Provider selects the backend: "smtp" uses the SMTP settings,
// "gmail" uses the OAuth2 credentials.
type MailConfig struct {
	Provider     string `mapstructure:"provider"`
	FromEmail    string `mapstructure:"from_email"`
	FromName     string `mapstructure:"from_name"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
}

// TrackingConfig holds the public-facing URLs baked into outgoing emails
type TrackingConfig struct {
	// BaseURL is the externally reachable base of this service, used to
	// build pixel and redirect URLs (no trailing slash).
	BaseURL string `mapstructure:"base_url"`
	// HomeURL is the fallback redirect target when a tracked link carries
	// no destination.
	HomeURL string `mapstructure:"home_url"`
}

// SchedulerConfig holds reminder scheduler configuration
type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("mail.provider", "smtp")
	viper.SetDefault("mail.from_email", "noreply@docually.com")
	viper.SetDefault("mail.from_name", "Docually")
	viper.SetDefault("mail.smtp_port", 587)

	viper.SetDefault("tracking.base_url", "http://localhost:8080")
	viper.SetDefault("tracking.home_url", "http://localhost:8080/")

	viper.SetDefault("scheduler.interval_minutes", 5)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Mail
	viper.BindEnv("mail.provider", "MAIL_PROVIDER")
	viper.BindEnv("mail.from_email", "MAIL_FROM_EMAIL")
	viper.BindEnv("mail.from_name", "MAIL_FROM_NAME")
	viper.BindEnv("mail.smtp_host", "MAIL_SMTP_HOST")
	viper.BindEnv("mail.smtp_port", "MAIL_SMTP_PORT")
	viper.BindEnv("mail.smtp_user", "MAIL_SMTP_USER")
	viper.BindEnv("mail.smtp_password", "MAIL_SMTP_PASSWORD")
	viper.BindEnv("mail.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("mail.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("mail.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("mail.user_email", "GMAIL_USER_EMAIL")

	// Tracking
	viper.BindEnv("tracking.base_url", "TRACKING_BASE_URL")
	viper.BindEnv("tracking.home_url", "TRACKING_HOME_URL")

	// Scheduler
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	switch c.Mail.Provider {
	case "smtp":
		if c.Mail.SMTPHost == "" || c.Mail.SMTPUser == "" || c.Mail.SMTPPassword == "" {
			return fmt.Errorf("SMTP host, user, and password are required when using the smtp provider")
		}
	case "gmail":
		if c.Mail.ClientID == "" || c.Mail.ClientSecret == "" || c.Mail.RefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required when using the gmail provider")
		}
	default:
		return fmt.Errorf("unknown mail provider: %s", c.Mail.Provider)
	}

	if c.Mail.FromEmail == "" {
		return fmt.Errorf("mail from_email is required")
	}

	if c.Tracking.BaseURL == "" {
		return fmt.Errorf("tracking base_url is required")
	}

	// The cron expression "0 */N * * * *" only behaves for N within one hour
	if c.Scheduler.IntervalMinutes <= 0 || c.Scheduler.IntervalMinutes > 59 {
		return fmt.Errorf("scheduler interval must be between 1 and 59 minutes")
	}

	return nil
}
