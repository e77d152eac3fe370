// Package config loads mainkit configuration from YAML files, .env files and
// environment variables.
//
// Files are looked up in the standard service locations (./cmd/<name>/config.yml,
// ./config/config.yml, ./config.yml) unless an explicit path is given. Every
// environment variable is bound under several nested key spellings, so
// BOOTSTRAP_CLOSE_TIMEOUT overrides bootstrap.close_timeout.
//
// # Usage
//
//	cfg, err := config.Load("mainkit", config.WithConfigFile(path))
package config
