// Package config loads server settings from defaults, an optional
// config.yaml and TEMBA_ prefixed environment variables.
package config
