package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	EnvLogFormat  = "RAMPART_LOG_FORMAT"
	EnvLogLevel   = "RAMPART_LOG_LEVEL"
	EnvDoctrine   = "RAMPART_DOCTRINE"
	EnvArchiveDir = "RAMPART_ARCHIVE_DIR"
	EnvRecord     = "RAMPART_RECORD"
)

var validate = validator.New()

// Config holds the process settings. Command-line flags override it.
type Config struct {
	LogFormat  string `validate:"oneof=text json"`
	LogLevel   string `validate:"oneof=debug info warn error"`
	Doctrine   string // YAML doctrine path; empty plays the built-in rules
	ArchiveDir string `validate:"required_if=Record true"`
	Record     bool
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		LogFormat:  "text",
		LogLevel:   "info",
		ArchiveDir: "recordings",
	}
}

// Load reads the given .env files (".env" when none are named) and then the
// environment. A missing .env file is not an error; variables already set in
// the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
		slog.Debug("no .env file found, relying on environment variables")
	}

	cfg := Default()
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvDoctrine); v != "" {
		cfg.Doctrine = v
	}
	if v, ok := os.LookupEnv(EnvArchiveDir); ok {
		cfg.ArchiveDir = v
	}
	if v := os.Getenv(EnvRecord); v != "" {
		rec, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvRecord, err)
		}
		cfg.Record = rec
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings, including any flag overrides applied after
// Load.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
