package ledger

import (
	"errors"
	"time"
)

const (
	// DefaultBasePath is the Sage 200 Evolution REST SDK root
	DefaultBasePath = "freedom.core"
	// DefaultTimeout bounds a single ledger call
	DefaultTimeout = 60 * time.Second
	// maxResponseSize caps how much of a response body is read (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

// Errors for ledger client configuration
var (
	ErrConfigInvalidTimeout = errors.New("ledger: timeout must be positive")
	ErrConfigMissingPath    = errors.New("ledger: base path is required")
)

// Config holds configuration for the Sage 200 Evolution REST client
type Config struct {
	// BasePath is the path segment before the company name
	BasePath string
	// Timeout is the HTTP timeout of every call; there is no other deadline
	Timeout time.Duration
	// UserAgent is sent with every request when set
	UserAgent string
}

// DefaultConfig returns the default client configuration
func DefaultConfig() Config {
	return Config{
		BasePath: DefaultBasePath,
		Timeout:  DefaultTimeout,
	}
}

// Validate validates the configuration and fills defaults
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return ErrConfigMissingPath
	}
	if c.Timeout < 0 {
		return ErrConfigInvalidTimeout
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}
