package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Mode selects environment-dependent behaviour
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// Config holds all configuration for the application
type Config struct {
	Mode Mode

	// Database
	DatabaseURL string
	// AutoMigrate applies pending migrations when the server starts.
	// Always false in production, where schema changes go through `api migrate`.
	AutoMigrate bool

	// Auth0
	Auth0Domain   string
	Auth0Audience string
	// RoleClaim is the custom token claim carrying the staff role
	RoleClaim string

	// Server
	Port               string
	CORSOrigins        []string
	RateLimitPerMinute int

	// EvaluationCron is the schedule of the nightly portfolio evaluation, in Africa/Kampala time
	EvaluationCron string

	// S3 storage for KYC documents
	S3 S3Config
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
}

// Enabled reports whether document storage has been configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// IsProduction reports whether the production mode is active
func (c *Config) IsProduction() bool {
	return c.Mode == ModeProduction
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("APP_ENV", string(ModeDevelopment))
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH0_DOMAIN", "")
	v.SetDefault("AUTH0_AUDIENCE", "")
	v.SetDefault("ROLE_CLAIM", "https://bingovintage.ug/role")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("EVALUATION_CRON", "30 0 * * *")
	v.SetDefault("S3_REGION", "af-south-1")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Mode:               Mode(strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		Auth0Domain:        v.GetString("AUTH0_DOMAIN"),
		Auth0Audience:      v.GetString("AUTH0_AUDIENCE"),
		RoleClaim:          v.GetString("ROLE_CLAIM"),
		Port:               v.GetString("PORT"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		EvaluationCron:     v.GetString("EVALUATION_CRON"),
		S3: S3Config{
			Region:          v.GetString("S3_REGION"),
			Bucket:          v.GetString("S3_BUCKET"),
			AccessKeyID:     v.GetString("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("AWS_SECRET_ACCESS_KEY"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.AutoMigrate = cfg.Mode == ModeDevelopment
	if cfg.IsProduction() {
		dbURL, err := requireSSL(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dbURL
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Mode != ModeDevelopment && c.Mode != ModeProduction {
		return fmt.Errorf("APP_ENV must be %q or %q, got %q", ModeDevelopment, ModeProduction, c.Mode)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if c.Auth0Domain == "" {
			return fmt.Errorf("AUTH0_DOMAIN is required")
		}
		if c.Auth0Audience == "" {
			return fmt.Errorf("AUTH0_AUDIENCE is required")
		}
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// requireSSL forces sslmode=require unless a stricter verify mode is already set
func requireSSL(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	switch q.Get("sslmode") {
	case "verify-ca", "verify-full", "require":
	default:
		q.Set("sslmode", "require")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
