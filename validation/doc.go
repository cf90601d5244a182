// Package validation validates configuration structs using struct tags.
//
// Field names in messages come from the mapstructure tag so they match the
// keys users write in config.yml:
//
//	type StreamConfig struct {
//	    Capacity int `mapstructure:"capacity" validate:"gt=0"`
//	}
//	err := validation.Validate(cfg)
package validation
