package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/fairyhunter13/parcelace-scratch/internal/scratch"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Log     LogConfig
	Scratch ScratchConfig
	Session SessionConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host       string `envconfig:"DB_HOST" default:"localhost"`
	Port       int    `envconfig:"DB_PORT" default:"5432"`
	User       string `envconfig:"DB_USER" default:"postgres"`
	Password   string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name       string `envconfig:"DB_NAME" default:"parcelace_db"`
	SSLMode    string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns   int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns   int    `envconfig:"DB_MIN_CONNS" default:"5"`
	MaxRetries int    `envconfig:"DB_MAX_RETRIES" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// ScratchConfig holds the tunables of the scratch mechanic.
type ScratchConfig struct {
	Threshold   float64 `envconfig:"SCRATCH_THRESHOLD" default:"0.60"`
	EraseRadius int     `envconfig:"SCRATCH_ERASE_RADIUS" default:"15"`
	MinHeight   int     `envconfig:"SCRATCH_MIN_HEIGHT" default:"200"`
	SpeckleArea int     `envconfig:"SCRATCH_SPECKLE_AREA" default:"1000"`
	Label       string  `envconfig:"SCRATCH_LABEL" default:"Scratch to reveal your reward!"`
}

// Settings converts the configuration into engine settings.
// Values outside their valid range fall back to the defaults.
func (c ScratchConfig) Settings() scratch.Settings {
	s := scratch.DefaultSettings()
	if c.Threshold > 0 && c.Threshold <= 1 {
		s.Threshold = c.Threshold
	}
	if c.EraseRadius > 0 {
		s.EraseRadius = c.EraseRadius
	}
	if c.MinHeight > 0 {
		s.MinHeight = c.MinHeight
	}
	if c.SpeckleArea > 0 {
		s.SpeckleArea = c.SpeckleArea
	}
	if c.Label != "" {
		s.Label = c.Label
	}
	return s
}

// SessionConfig controls how many cards stay in memory and for how long.
// Each card holds its full RGBA coating, so MaxCards bounds memory use.
type SessionConfig struct {
	TTL           time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`
	MaxCards      int           `envconfig:"SESSION_MAX_CARDS" default:"2000"` // 0 disables the cap
}

// Load parses environment variables into the Config struct.
// A .env file in the working directory is read first when present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
