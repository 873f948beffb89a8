package extraction

import (
	"errors"
	"strings"
	"time"
)

const (
	DefaultTimeout         = 60 * time.Second
	DefaultMaxConcurrency  = 2
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollAttempts = 30
)

// Config holds connection settings for the extraction service.
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration // per request
	MaxConcurrency  int           // in-flight requests per client
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Normalize fills unset fields with defaults and trims the base URL.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = DefaultMaxPollAttempts
	}
}

// Validate normalizes the configuration and checks required fields.
func (c *Config) Validate() error {
	c.Normalize()
	if c.BaseURL == "" {
		return errors.New("extraction config: BaseURL is required")
	}
	if c.APIKey == "" {
		return errors.New("extraction config: APIKey is required")
	}
	return nil
}
