package overlap

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
)

// ErrInvalidOptions is returned by Detect when Options fail validation.
var ErrInvalidOptions = errors.New("overlap: invalid options")

// Defaults.
const (
	DefaultResolution  = 1000
	DefaultErrMax      = 1
	DefaultScaleFactor = 1.001
)

// Options configures a Detector.
type Options struct {
	// Resolution is the number of surface samples drawn per placement.
	Resolution int

	// Tolerance is the penetration depth an overlap must exceed.
	// Boundary contact never counts.
	Tolerance float64

	// ErrMax bounds the overlaps recorded per placement. Sampling of a
	// placement stops once it is reached.
	ErrMax int

	// Verbose logs every overlap as it is recorded.
	Verbose bool

	// Workers is the number of placements checked concurrently.
	// Values below 2 check one placement at a time.
	Workers int

	// Seed makes sampling reproducible. Each placement draws from its own
	// stream derived from Seed and its pre-order index.
	Seed uint64

	// ScaleFactor enlarges overlap regions so they render over the
	// coincident faces of the solids they were cut from.
	ScaleFactor float64

	// Logger receives warnings and verbose output. Nil uses log.Default().
	Logger *log.Logger

	// Metrics, if set, is updated as detection runs.
	Metrics *Metrics
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Resolution:  DefaultResolution,
		ErrMax:      DefaultErrMax,
		Workers:     1,
		ScaleFactor: DefaultScaleFactor,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidOptions.
func (o Options) Validate() error {
	switch {
	case o.Resolution < 1:
		return fmt.Errorf("%w: resolution must be positive, got %d", ErrInvalidOptions, o.Resolution)
	case o.Tolerance < 0 || math.IsNaN(o.Tolerance) || math.IsInf(o.Tolerance, 0):
		return fmt.Errorf("%w: tolerance must be a finite non-negative number, got %g", ErrInvalidOptions, o.Tolerance)
	case o.ErrMax < 1:
		return fmt.Errorf("%w: errmax must be positive, got %d", ErrInvalidOptions, o.ErrMax)
	case o.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidOptions, o.Workers)
	case !(o.ScaleFactor >= 1) || math.IsInf(o.ScaleFactor, 0):
		return fmt.Errorf("%w: scale factor must be at least 1, got %g", ErrInvalidOptions, o.ScaleFactor)
	}
	return nil
}
