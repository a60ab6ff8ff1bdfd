// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host image

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix namespaces every environment variable, e.g. REWEAR_HTTP_ADDR.
const Prefix = "REWEAR"

// Config holds all runtime settings. An empty DatabaseDSN selects the
// in-memory store; an empty RedisAddr keeps revoked tokens in memory.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	HealthAddr      string        `envconfig:"HEALTH_ADDR" default:":8081"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CookieSecure    bool          `envconfig:"COOKIE_SECURE" default:"false"`

	DatabaseDSN string `envconfig:"DATABASE_DSN"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"20"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTKey         string        `envconfig:"JWT_KEY" required:"true"`
	AccessTTL      time.Duration `envconfig:"ACCESS_TTL" default:"24h"`
	StartingPoints int64         `envconfig:"STARTING_POINTS" default:"10"`
	Timezone       string        `envconfig:"TIMEZONE" default:"UTC"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	RetryAttempts  int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"10ms"`

	LimiterWindow   time.Duration `envconfig:"LIMITER_WINDOW" default:"15m"`
	LimiterMaxFails int           `envconfig:"LIMITER_MAX_FAILS" default:"5"`
	LimiterBlockFor time.Duration `envconfig:"LIMITER_BLOCK_FOR" default:"15m"`
	LimiterPurge    string        `envconfig:"LIMITER_PURGE_SCHEDULE" default:"@hourly"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges envconfig cannot express.
func (c *Config) Validate() error {
	var problems []error
	if len(c.JWTKey) < 16 {
		problems = append(problems, errors.New("JWT_KEY must be at least 16 bytes"))
	}
	if c.AccessTTL <= 0 {
		problems = append(problems, errors.New("ACCESS_TTL must be positive"))
	}
	if c.StartingPoints < 0 {
		problems = append(problems, errors.New("STARTING_POINTS must not be negative"))
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		problems = append(problems, errors.New("invalid DB_MIN_CONNS/DB_MAX_CONNS"))
	}
	if c.RetryAttempts < 1 {
		problems = append(problems, errors.New("RETRY_ATTEMPTS must be at least 1"))
	}
	if c.RetryBaseDelay < 0 {
		problems = append(problems, errors.New("RETRY_BASE_DELAY must not be negative"))
	}
	if c.LimiterMaxFails < 1 || c.LimiterWindow <= 0 || c.LimiterBlockFor <= 0 {
		problems = append(problems, errors.New("invalid LIMITER_* settings"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		problems = append(problems, fmt.Errorf("LOG_FORMAT %q: want json or console", c.LogFormat))
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, err)
	}
	return errors.Join(problems...)
}

// Location resolves the time zone used for daily bonus boundaries.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
