// Package config loads and validates the YAML service configuration.
// Every section validates itself; Load fails fast on any inconsistent
// value so a misconfigured service never starts.
package config
