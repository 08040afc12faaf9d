package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinJWTSecretLength is the shortest signing secret accepted outside development.
const MinJWTSecretLength = 32

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	DatabaseURL         string        `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret           string        `mapstructure:"JWT_SECRET"`
	TokenTTL            time.Duration `mapstructure:"TOKEN_TTL"`
	RedisURL            string        `mapstructure:"REDIS_URL"`
	OpenAIAPIKey        string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel         string        `mapstructure:"OPENAI_MODEL"`
	SimplifierTimeout   time.Duration `mapstructure:"SIMPLIFIER_TIMEOUT"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit           string        `mapstructure:"BODY_LIMIT"`
	LoginRateLimitRPS   float64       `mapstructure:"LOGIN_RATE_LIMIT_RPS"`
	LoginRateLimitBurst int           `mapstructure:"LOGIN_RATE_LIMIT_BURST"`
	AutoMigrate         bool          `mapstructure:"AUTO_MIGRATE"`
}

var envKeys = []string{
	"PORT",
	"ENV",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"JWT_SECRET",
	"TOKEN_TTL",
	"REDIS_URL",
	"OPENAI_API_KEY",
	"OPENAI_BASE_URL",
	"OPENAI_MODEL",
	"SIMPLIFIER_TIMEOUT",
	"CORS_ORIGINS",
	"BODY_LIMIT",
	"LOGIN_RATE_LIMIT_RPS",
	"LOGIN_RATE_LIMIT_BURST",
	"AUTO_MIGRATE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("SIMPLIFIER_TIMEOUT", "20s")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("LOGIN_RATE_LIMIT_RPS", 5)
	v.SetDefault("LOGIN_RATE_LIMIT_BURST", 10)
	v.SetDefault("AUTO_MIGRATE", true)

	// Unmarshal only sees env vars that are bound explicitly.
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// A missing .env is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SimplifierEnabled reports whether an upstream language model is configured.
func (c *Config) SimplifierEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// Validate checks that the configuration is safe to serve traffic with.
// Outside development the token signing secret must be supplied externally;
// there is no embedded fallback.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
		}
		if len(c.JWTSecret) < MinJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters, got %d", MinJWTSecretLength, len(c.JWTSecret))
		}
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.SimplifierTimeout <= 0 {
		return fmt.Errorf("SIMPLIFIER_TIMEOUT must be positive, got %s", c.SimplifierTimeout)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
