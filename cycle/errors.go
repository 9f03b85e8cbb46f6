package cycle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCycleConfig is returned for any malformed cycle policy.
	ErrInvalidCycleConfig = errors.New("InvalidCycleConfig")

	// ErrZeroLengthCycle marks a cycle whose end does not come after its start.
	// Proration treats such a cycle as a whole month.
	ErrZeroLengthCycle = errors.New("ZeroLengthCycle")
)

// ConfigError describes which policy value was rejected and why.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidCycleConfig, e.Reason)
	}
	return fmt.Sprintf("%s: %s=%v: %s", ErrInvalidCycleConfig, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidCycleConfig
}

// IsConfigError reports whether err comes from a rejected policy.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidCycleConfig)
}
