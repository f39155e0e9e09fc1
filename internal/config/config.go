// Package config loads go-yoloface settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Defaults used when the corresponding variable is unset.
const (
	DefaultTritonURL   = "http://localhost:8000"
	DefaultModelName   = "yolo"
	DefaultInputSize   = 640
	DefaultHTTPTimeout = 30 * time.Second
	DefaultPort        = "8080"
	DefaultLogLevel    = "info"
)

// Config holds process settings for the CLI and the web service.
type Config struct {
	TritonURL    string        `validate:"required,url"`
	ModelName    string        `validate:"required"`
	ModelVersion string        `validate:"omitempty,numeric"`
	InputWidth   int           `validate:"gt=0,lte=4096"`
	InputHeight  int           `validate:"gt=0,lte=4096"`
	KeepRatio    bool
	HTTPTimeout  time.Duration `validate:"gt=0"`
	Port         string        `validate:"required,numeric"`
	LogLevel     string        `validate:"oneof=debug info warn warning error"`
	MinScore     float64       `validate:"gte=0,lte=1"`
}

var validate = validator.New()

// Load reads .env from the working directory if present, then the process
// environment. Callers apply any overrides, such as command-line flags, and
// then call Validate.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. Variables already set in
// the environment win over the file. A missing file is not an error. Only
// malformed values are reported here; field constraints are left to Validate.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	cfg := &Config{
		TritonURL:    envString("TRITON_URL", DefaultTritonURL),
		ModelName:    envString("MODEL_NAME", DefaultModelName),
		ModelVersion: os.Getenv("MODEL_VERSION"),
		Port:         envString("PORT", DefaultPort),
		LogLevel:     envString("LOG_LEVEL", DefaultLogLevel),
	}

	var err error
	if cfg.InputWidth, err = envInt("INPUT_WIDTH", DefaultInputSize); err != nil {
		return nil, err
	}
	if cfg.InputHeight, err = envInt("INPUT_HEIGHT", DefaultInputSize); err != nil {
		return nil, err
	}
	if cfg.KeepRatio, err = envBool("KEEP_RATIO", true); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = envDuration("HTTP_TIMEOUT", DefaultHTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.MinScore, err = envFloat("MIN_SCORE", 0); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Addr returns the listen address for the web service.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
