// Package config defines the application configuration structure and the
// viper-based loader that populates it from the environment and an optional
// YAML file.
package config
