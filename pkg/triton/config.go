package triton

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-yoloface/internal/httpc"
)

// Config holds client configuration.
type Config struct {
	// Connection
	BaseURL string // Server base URL, e.g. "http://localhost:8000"

	// Model
	Model   string // Model name as deployed on the server
	Version string // Optional model version; empty uses the server's policy

	// Transport
	Timeout    time.Duration // Per-request timeout, ignored when HTTPClient is set
	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithBaseURL sets the server base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel sets the model name.
func WithModel(name string) Option {
	return func(c *Config) { c.Model = name }
}

// WithVersion pins a model version.
func WithVersion(v string) Option {
	return func(c *Config) { c.Version = v }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults for a local Triton server.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:8000",
		Model:   "yolo",
		Timeout: httpc.DefaultTimeout,
		Logger:  slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	if c.Model == "" {
		return ErrNoModel
	}
	return nil
}
