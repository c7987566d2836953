package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Meta          MetaConfig          `yaml:"meta"`
	CRM           CRMConfig           `yaml:"crm"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Worker        WorkerConfig        `yaml:"worker"`
	Dashboard     DashboardConfig     `yaml:"dashboard"`
	Archive       ArchiveConfig       `yaml:"archive"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds Redis settings for the dashboard query cache
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// MetaConfig holds Meta Marketing API configuration
type MetaConfig struct {
	AccessToken    string `yaml:"access_token"`
	AdAccountID    string `yaml:"ad_account_id"`
	BaseURL        string `yaml:"base_url"`
	APIVersion     string `yaml:"api_version"`
	PageSize       int    `yaml:"page_size"`
	MaxRetries     int    `yaml:"max_retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c MetaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CRMConfig holds GoHighLevel-style CRM API configuration
type CRMConfig struct {
	APIKey         string `yaml:"api_key"`
	LocationID     string `yaml:"location_id"`
	BaseURL        string `yaml:"base_url"`
	APIVersion     string `yaml:"api_version"`
	PageSize       int    `yaml:"page_size"`
	PageDelayMs    int    `yaml:"page_delay_ms"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`

	// Known custom-field identifiers for contact sync
	CashCollectedFieldID string `yaml:"cash_collected_field_id"`
	DealValueFieldID     string `yaml:"deal_value_field_id"`
}

// Timeout returns the configured timeout as a duration
func (c CRMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PageDelay returns the courtesy delay between contact pages
func (c CRMConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}

// TranscriptionConfig holds the speech-to-text provider configuration
type TranscriptionConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c TranscriptionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WorkerConfig holds transcript worker settings
type WorkerConfig struct {
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	BatchSize           int    `yaml:"batch_size"`
	TempDir             string `yaml:"temp_dir"`
	MetricsPort         int    `yaml:"metrics_port"`
}

// PollInterval returns the polling interval as a duration
func (c WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// DashboardConfig holds query-layer settings
type DashboardConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
	DefaultDays     int `yaml:"default_days"`
	TopLimit        int `yaml:"top_limit"`
}

// CacheTTL returns the dashboard cache TTL as a duration
func (c DashboardConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// ArchiveConfig holds S3 raw-payload archival settings
type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c ArchiveConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Meta.BaseURL == "" {
		cfg.Meta.BaseURL = "https://graph.facebook.com"
	}
	if cfg.Meta.APIVersion == "" {
		cfg.Meta.APIVersion = "v19.0"
	}
	if cfg.Meta.PageSize == 0 {
		cfg.Meta.PageSize = 500
	}
	if cfg.Meta.MaxRetries == 0 {
		cfg.Meta.MaxRetries = 5
	}
	if cfg.Meta.TimeoutSeconds == 0 {
		cfg.Meta.TimeoutSeconds = 60
	}
	if cfg.CRM.BaseURL == "" {
		cfg.CRM.BaseURL = "https://services.leadconnectorhq.com"
	}
	if cfg.CRM.APIVersion == "" {
		cfg.CRM.APIVersion = "2021-07-28"
	}
	if cfg.CRM.PageSize == 0 {
		cfg.CRM.PageSize = 100
	}
	if cfg.CRM.PageDelayMs == 0 {
		cfg.CRM.PageDelayMs = 500
	}
	if cfg.CRM.TimeoutSeconds == 0 {
		cfg.CRM.TimeoutSeconds = 30
	}
	if cfg.Transcription.BaseURL == "" {
		cfg.Transcription.BaseURL = "https://api.deepgram.com"
	}
	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "nova-2"
	}
	if cfg.Transcription.TimeoutSeconds == 0 {
		cfg.Transcription.TimeoutSeconds = 120
	}
	if cfg.Transcription.MaxUploadBytes == 0 {
		cfg.Transcription.MaxUploadBytes = 25 * 1024 * 1024
	}
	if cfg.Worker.PollIntervalSeconds == 0 {
		cfg.Worker.PollIntervalSeconds = 30
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = 5
	}
	if cfg.Worker.TempDir == "" {
		cfg.Worker.TempDir = os.TempDir()
	}
	if cfg.Worker.MetricsPort == 0 {
		cfg.Worker.MetricsPort = 9090
	}
	if cfg.Dashboard.CacheTTLSeconds == 0 {
		cfg.Dashboard.CacheTTLSeconds = 120
	}
	if cfg.Dashboard.DefaultDays == 0 {
		cfg.Dashboard.DefaultDays = 7
	}
	if cfg.Dashboard.TopLimit == 0 {
		cfg.Dashboard.TopLimit = 10
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("META_ACCESS_TOKEN"); v != "" {
		cfg.Meta.AccessToken = v
	}
	if v := os.Getenv("META_AD_ACCOUNT_ID"); v != "" {
		cfg.Meta.AdAccountID = v
	}
	if v := os.Getenv("META_BASE_URL"); v != "" {
		cfg.Meta.BaseURL = v
	}
	if v := os.Getenv("CRM_API_KEY"); v != "" {
		cfg.CRM.APIKey = v
	}
	if v := os.Getenv("CRM_LOCATION_ID"); v != "" {
		cfg.CRM.LocationID = v
	}
	if v := os.Getenv("CRM_BASE_URL"); v != "" {
		cfg.CRM.BaseURL = v
	}
	if v := os.Getenv("DEEPGRAM_API_KEY"); v != "" {
		cfg.Transcription.APIKey = v
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
		cfg.Archive.Enabled = true
	}
	if v := os.Getenv("ARCHIVE_S3_REGION"); v != "" {
		cfg.Archive.S3Region = v
	}

	return cfg, nil
}

// Validate checks that every enabled subsystem has its required credentials.
// Called at process start, before any I/O is attempted.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("config: database.url (or DATABASE_URL) is required")
	}
	if c.Meta.Enabled {
		if c.Meta.AccessToken == "" {
			return fmt.Errorf("config: meta.access_token is required when meta sync is enabled")
		}
		if c.Meta.AdAccountID == "" {
			return fmt.Errorf("config: meta.ad_account_id is required when meta sync is enabled")
		}
	}
	if c.CRM.Enabled {
		if c.CRM.APIKey == "" {
			return fmt.Errorf("config: crm.api_key is required when CRM sync is enabled")
		}
		if c.CRM.LocationID == "" {
			return fmt.Errorf("config: crm.location_id is required when CRM sync is enabled")
		}
	}
	if c.Transcription.Enabled && c.Transcription.APIKey == "" {
		return fmt.Errorf("config: transcription.api_key is required when transcription is enabled")
	}
	if c.Archive.Enabled && c.Archive.S3Bucket == "" {
		return fmt.Errorf("config: archive.s3_bucket is required when archival is enabled")
	}
	return nil
}
