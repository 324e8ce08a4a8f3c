package omegatx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Barometer or Hygrometer.
type Option func(*clientConfig) error

// clientConfig holds the configuration shared by both transmitter clients.
type clientConfig struct {
	port       int
	timeout    time.Duration
	logger     *slog.Logger
	httpClient *http.Client
	commands   []Command
}

// defaultConfig returns the default client configuration.
func defaultConfig() *clientConfig {
	return &clientConfig{
		port:     0,
		timeout:  2 * time.Second,
		logger:   nil,
		commands: commandTable,
	}
}

func buildConfig(opts []Option) (*clientConfig, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
	}
	return cfg, nil
}

// portOr returns the configured port, or def when none was set.
func (c *clientConfig) portOr(def int) int {
	if c.port == 0 {
		return def
	}
	return c.port
}

// WithPort sets the port to connect to.
// Default is 2000 for the Barometer and 80 for the Hygrometer.
func WithPort(port int) Option {
	return func(c *clientConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		c.port = port
		return nil
	}
}

// WithTimeout sets the timeout applied to connecting and to every
// individual read or request.
// Default is 2 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		c.timeout = d
		return nil
	}
}

// WithLogger sets a structured logger for debug and error logging.
// By default, no logging is performed.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) error {
		c.logger = logger
		return nil
	}
}

// WithHTTPClient sets the client the Hygrometer copies its session from.
// The session timeout is always the configured timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) error {
		if hc == nil {
			return errors.New("http client must not be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithCommands replaces the Barometer query sequence.
func WithCommands(cmds []Command) Option {
	return func(c *clientConfig) error {
		if len(cmds) == 0 {
			return errors.New("command list must not be empty")
		}
		seen := make(map[string]bool, len(cmds))
		for _, cmd := range cmds {
			if err := validateCommand(cmd); err != nil {
				return err
			}
			if seen[cmd.Label] {
				return fmt.Errorf("duplicate label %q", cmd.Label)
			}
			seen[cmd.Label] = true
		}
		c.commands = append([]Command(nil), cmds...)
		return nil
	}
}
