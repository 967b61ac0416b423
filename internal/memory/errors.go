package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCardReference is returned when a flip names a card that is not in the deck.
	ErrInvalidCardReference = errors.New("invalid card reference")

	// ErrConfiguration marks a round configuration that cannot be played.
	ErrConfiguration = errors.New("invalid round configuration")
)

// ConfigError describes which configuration field was rejected.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

// Is lets errors.Is match ConfigError against ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(field, format string, v ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, v...)}
}
