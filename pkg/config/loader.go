package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Validator is implemented by config structs that check invariants the env
// tags cannot express (URL shape, positive durations, cross-field rules).
type Validator interface {
	Validate() error
}

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings. When the struct
// implements Validator, its invariants are checked after parsing.
//
// Example:
//
//	type Config struct {
//	    BaseURL  string `env:"STOREFRONT_BASE_URL" envDefault:"http://localhost:4000/api"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("validate config: %w", err)
		}
	}
	return nil
}
