package simulation

import (
	"errors"
	"fmt"

	"github.com/flowlens/flowlens/pkg/models"
)

var (
	// ErrNoTransactions is returned when a run is requested with fewer than
	// one transaction. An empty run is a caller mistake, not an empty result.
	ErrNoTransactions = errors.New("num_transactions must be at least 1")

	// ErrUnknownMode is returned for a simulation mode outside the closed set.
	ErrUnknownMode = errors.New("unknown simulation mode")

	// ErrUnjoinedGateway is returned by the deterministic engine when a
	// parallel gateway's branches never reconverge. The stochastic engine
	// can follow such branches to their separate ends; expected-value
	// propagation cannot.
	ErrUnjoinedGateway = errors.New("parallel gateway branches never reconverge")
)

// ConfigError wraps an invalid run configuration with the offending field.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid simulation config (%s): %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is a rejected run configuration.
func IsConfigError(err error) bool {
	var ce *ConfigError

	return errors.As(err, &ce)
}

func validateConfig(cfg models.SimulationConfig) error {
	if cfg.NumTransactions < 1 {
		return &ConfigError{Field: "num_transactions", Err: ErrNoTransactions}
	}

	switch cfg.Mode {
	case models.ModeDeterministic, models.ModeMonteCarlo:
	default:
		return &ConfigError{Field: "mode", Err: fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)}
	}

	return nil
}
