// Package config loads and validates the meal-gateway YAML configuration.
package config
