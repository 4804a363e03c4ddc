package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Java.Binary == "" {
		return errors.New("java.binary must be set")
	}
	if c.Java.JarFile == "" {
		return errors.New("java.jar_file must be set")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
