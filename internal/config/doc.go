// Package config loads and validates the TOML configuration for the montage
// CLI: filesystem paths, the external java/jar invocation settings, and log
// output options.
package config
