package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/acil/er-desk/pkg/erclient"
)

type Config struct {
	Port          string        `mapstructure:"PORT"`
	Env           string        `mapstructure:"ENV"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	APIBaseURL    string        `mapstructure:"API_BASE_URL"`
	SessionSecret string        `mapstructure:"SESSION_SECRET"`
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS"`
	Username      string        `mapstructure:"ER_USERNAME"`
	Password      string        `mapstructure:"ER_PASSWORD"`

	LoginRateLimitRPS   float64 `mapstructure:"LOGIN_RATE_LIMIT_RPS"`
	LoginRateLimitBurst int     `mapstructure:"LOGIN_RATE_LIMIT_BURST"`
}

// devSessionSecret signs session tokens when ENV=development and no
// SESSION_SECRET is configured.
const devSessionSecret = "er-desk-development-only"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("API_BASE_URL", erclient.DefaultBaseURL)
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOGIN_RATE_LIMIT_RPS", 1)
	v.SetDefault("LOGIN_RATE_LIMIT_BURST", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("API_BASE_URL")
	v.BindEnv("SESSION_SECRET")
	v.BindEnv("SESSION_TTL")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("ER_USERNAME")
	v.BindEnv("ER_PASSWORD")
	v.BindEnv("LOGIN_RATE_LIMIT_RPS")
	v.BindEnv("LOGIN_RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.SessionSecret == "" && cfg.IsDev() {
		log.Println("WARNING: SESSION_SECRET is empty; using the built-in development secret.")
		cfg.SessionSecret = devSessionSecret
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Level parses LOG_LEVEL, falling back to info for unknown values.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks that the configuration is usable. The backend origin must
// be an absolute http(s) URL, and outside development a real SESSION_SECRET
// is required.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("API_BASE_URL is not a valid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use http or https, got %q", c.APIBaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("API_BASE_URL must include a host, got %q", c.APIBaseURL)
	}

	if !c.IsDev() {
		if c.SessionSecret == "" || c.SessionSecret == devSessionSecret {
			return fmt.Errorf("SESSION_SECRET is required when ENV=%q", c.Env)
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 characters, got %d", len(c.SessionSecret))
		}
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}

	return nil
}
