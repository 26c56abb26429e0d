// Package config resolves the client configuration from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/tansive/backoffice/internal/session"
)

// DefaultServerURL is used when BACKOFFICE_API_URL is not set.
const DefaultServerURL = "http://localhost:8000"

// DotEnvFile is loaded by Load when present.
const DotEnvFile = ".env"

// Config holds the settings shared by every command.
type Config struct {
	// ServerURL is the API base URL every endpoint is appended to
	ServerURL string `env:"BACKOFFICE_API_URL" envDefault:"http://localhost:8000" validate:"required,http_url"`
	// SessionFile is where the token and display name are persisted
	SessionFile string `env:"BACKOFFICE_SESSION_FILE"`
	// LogLevel is a zerolog level name
	LogLevel string `env:"BACKOFFICE_LOG_LEVEL" envDefault:"info" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads .env (if present) into the process environment and parses Config from it.
func Load() (*Config, error) {
	return load(DotEnvFile, false)
}

// LoadFile is Load with an explicit env file, which must exist.
func LoadFile(path string) (*Config, error) {
	return load(path, true)
}

func load(dotenv string, required bool) (*Config, error) {
	if err := godotenv.Load(dotenv); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("unable to load %s: %w", dotenv, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return finish(&cfg)
}

// LoadFromMap parses Config from the given variables instead of the process
// environment.
func LoadFromMap(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ServerURL = MorphServer(cfg.ServerURL)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SessionFile == "" {
		path, err := session.GetDefaultSessionPath()
		if err != nil {
			return nil, err
		}
		cfg.SessionFile = path
	}
	return cfg, nil
}

// Validate checks field constraints.
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s fails %q (value %q)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// MorphServer trims surrounding whitespace and trailing slashes, and adds
// http:// when no scheme is given.
func MorphServer(server string) string {
	server = strings.TrimSpace(server)
	if server == "" {
		return server
	}
	server = strings.TrimRight(server, "/")
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}
	return server
}
