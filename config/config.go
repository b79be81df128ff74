package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	MongoURI            string        `mapstructure:"MONGO_URI"`
	MongoDatabase       string        `mapstructure:"MONGO_DATABASE"`
	MongoConnectTimeout time.Duration `mapstructure:"MONGO_CONNECT_TIMEOUT"`
	JWTSecret           string        `mapstructure:"JWT_SECRET"`
	JWTIssuer           string        `mapstructure:"JWT_ISSUER"`
	SessionTTL          time.Duration `mapstructure:"SESSION_TTL"`
	SessionCookie       string        `mapstructure:"SESSION_COOKIE"`
	CookieSecure        bool          `mapstructure:"COOKIE_SECURE"`
	BcryptCost          int           `mapstructure:"BCRYPT_COST"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	JobsEnabled         bool          `mapstructure:"JOBS_ENABLED"`
	DispatchSchedule    string        `mapstructure:"DISPATCH_SCHEDULE"`
	ReconcileSchedule   string        `mapstructure:"RECONCILE_SCHEDULE"`
	StrandedGrace       time.Duration `mapstructure:"STRANDED_GRACE"`
	DispatchBatch       int           `mapstructure:"DISPATCH_BATCH"`
	ShutdownTimeout     time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

const minSecretLength = 32

var defaults = map[string]interface{}{
	"PORT":                  "8080",
	"ENV":                   "development",
	"LOG_LEVEL":             "info",
	"MONGO_DATABASE":        "aeternum",
	"MONGO_CONNECT_TIMEOUT": "10s",
	"JWT_ISSUER":            "aeternum",
	"SESSION_TTL":           "24h",
	"SESSION_COOKIE":        "aeternum_session",
	"BCRYPT_COST":           10,
	"CORS_ORIGINS":          "http://localhost:3000",
	"JOBS_ENABLED":          true,
	"DISPATCH_SCHEDULE":     "@every 30s",
	"RECONCILE_SCHEDULE":    "@every 5m",
	"STRANDED_GRACE":        "2m",
	"DISPATCH_BATCH":        20,
	"SHUTDOWN_TIMEOUT":      "15s",
}

/*
* Load .env into the environment when present
* Bind every key through viper with its default
* Validate before handing the config out
 */
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using process environment")
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// keys without defaults still need binding for Unmarshal to see them
	for _, key := range []string{"MONGO_URI", "JWT_SECRET", "COOKIE_SECURE"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	// secure cookies everywhere except development, unless set explicitly
	if !v.IsSet("COOKIE_SECURE") {
		cfg.CookieSecure = !cfg.IsDev()
	}
	for i, origin := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(origin)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !c.IsDev() && len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes outside development", minSecretLength)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.DispatchBatch <= 0 {
		return fmt.Errorf("DISPATCH_BATCH must be positive, got %d", c.DispatchBatch)
	}
	return nil
}
