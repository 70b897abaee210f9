package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.Threads < 1 {
		return errors.New("scan.threads must be at least 1")
	}
	if c.Scan.SimilarityThreshold < 0 {
		return errors.New("scan.similarity_threshold must not be negative")
	}
	switch c.Scan.KeepPolicy {
	case "oldest", "largest":
	default:
		return fmt.Errorf("scan.keep_policy must be %q or %q, got %q", "oldest", "largest", c.Scan.KeepPolicy)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "console", "json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}
