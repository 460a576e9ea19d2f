package kernel

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultUnit is the length unit of kernel coordinates.
const DefaultUnit = "mm"

// ErrUnknownUnit is returned by UnitScale for a name it does not know.
var ErrUnknownUnit = errors.New("kernel: unknown length unit")

// units gives the size of each length unit in millimetres.
var units = map[string]float64{
	"mm":   1,
	"cm":   10,
	"m":    1000,
	"in":   25.4,
	"inch": 25.4,
}

// UnitScale returns the factor that converts lengths in the named unit to
// kernel units. An empty name means DefaultUnit.
func UnitScale(name string) (float64, error) {
	if name == "" {
		name = DefaultUnit
	}
	f, ok := units[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(units))
		for n := range units {
			names = append(names, n)
		}
		sort.Strings(names)
		return 0, fmt.Errorf("%w %q (want one of %s)", ErrUnknownUnit, name, strings.Join(names, ", "))
	}
	return f, nil
}
