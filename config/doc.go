// Package config loads service configuration with Viper.
//
// Values come from a config.yml found in the standard locations (or given
// with WithConfigFile), overridden by environment variables and a .env
// file loaded with godotenv. Nested keys map to upper-case underscore
// names, so STREAM_CAPACITY sets stream.capacity.
//
// # Usage
//
//	cfg, err := config.Load("rxdemo", config.WithEnvPrefix("RXDEMO"))
//	if err != nil {
//	    return err
//	}
//	logger.Init(cfg.Logging)
//
// Load applies defaults and validates struct tags through the validation
// package. LoadConfig only fills a caller-defined struct.
package config
