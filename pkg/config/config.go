package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Model    ModelConfig    `envconfig:"MODEL"`
	Analysis AnalysisConfig `envconfig:"ANALYSIS"`
	Progress ProgressConfig `envconfig:"PROGRESS"`
	Database DatabaseConfig `envconfig:"DB"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Storage  StorageConfig  `envconfig:"STORAGE"`
	JWT      JWTConfig      `envconfig:"JWT"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string        `default:"8080"`
	Host            string        `default:"0.0.0.0"`
	Environment     string        `default:"development"`
	AllowedOrigins  []string      `split_words:"true" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// ModelConfig selects and tunes the generative model provider
type ModelConfig struct {
	Provider             string        `default:"anthropic"`
	APIKey               string        `split_words:"true"`
	BaseURL              string        `split_words:"true"`
	Name                 string
	MaxTokens            int           `split_words:"true" default:"1000"`
	Timeout              time.Duration `default:"60s"`
	RetryInitialInterval time.Duration `split_words:"true" default:"2s"`
	RetryMaxInterval     time.Duration `split_words:"true" default:"10s"`
	RetryMaxElapsed      time.Duration `split_words:"true" default:"30s"`
}

var defaultModels = map[string]string{
	"anthropic": "claude-3-5-haiku-20241022",
	"openai":    "gpt-4o-mini",
	"groq":      "meta-llama/llama-4-scout-17b-16e-instruct",
}

// ModelName returns the configured model or the provider default
func (m ModelConfig) ModelName() string {
	if m.Name != "" {
		return m.Name
	}
	return defaultModels[strings.ToLower(m.Provider)]
}

// AnalysisConfig tunes the orchestrator loop
type AnalysisConfig struct {
	QuestionSet      string        `split_words:"true" default:"ad"`
	BatchSize        int           `split_words:"true" default:"3"`
	PersonaDelay     time.Duration `split_words:"true" default:"1s"`
	PersonaTimeout   time.Duration `split_words:"true" default:"90s"`
	FetchPage        bool          `split_words:"true" default:"false"`
	SnapshotMaxChars int           `split_words:"true" default:"4000"`
}

// ProgressConfig selects the progress store backend
type ProgressConfig struct {
	Backend       string        `default:"memory"` // memory, redis or database
	MaxAge        time.Duration `split_words:"true" default:"1h"`
	PurgeSchedule string        `split_words:"true" default:"@every 15m"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `default:"postgres"` // postgres or sqlite
	Host     string `default:"localhost"`
	Port     string `default:"5432"`
	User     string `default:"postgres"`
	Password string `default:"postgres"`
	Name     string `default:"persona_panel"`
	SSLMode  string `split_words:"true" default:"disable"`
	Path     string `default:"persona_panel.db"`
	MaxConns int    `split_words:"true" default:"25"`
	MinConns int    `split_words:"true" default:"5"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `default:"localhost"`
	Port     string `default:"6379"`
	Password string
	DB       int    `default:"0"`
}

// StorageConfig holds report archive configuration
type StorageConfig struct {
	Enabled         bool   `default:"false"`
	Endpoint        string `default:"localhost:9000"`
	AccessKeyID     string `split_words:"true" default:"minioadmin"`
	SecretAccessKey string `split_words:"true" default:"minioadmin"`
	BucketName      string `split_words:"true" default:"persona-reports"`
	UseSSL          bool   `split_words:"true" default:"false"`
}

// JWTConfig holds JWT configuration. An empty secret disables auth.
type JWTConfig struct {
	Secret string
	Issuer string `default:"persona-panel"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{}
	if err := envconfig.Process("", config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch strings.ToLower(c.Model.Provider) {
	case "anthropic", "openai", "groq":
	default:
		return fmt.Errorf("MODEL_PROVIDER %q is not supported", c.Model.Provider)
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("MODEL_MAX_TOKENS must be positive")
	}
	if c.Analysis.BatchSize < 1 {
		return fmt.Errorf("ANALYSIS_BATCH_SIZE must be at least 1")
	}
	if c.Analysis.PersonaDelay < 0 {
		return fmt.Errorf("ANALYSIS_PERSONA_DELAY must not be negative")
	}
	switch c.Progress.Backend {
	case "memory", "redis", "database":
	default:
		return fmt.Errorf("PROGRESS_BACKEND %q is not supported", c.Progress.Backend)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported", c.Database.Driver)
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Path
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// AuthEnabled reports whether bearer tokens are required
func (c *Config) AuthEnabled() bool {
	return c.JWT.Secret != ""
}
