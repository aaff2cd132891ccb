package facts

import (
	"fmt"

	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

// Validate checks the structural constraints of a single fact.
func Validate(f Fact) error {
	if f == nil {
		return fmt.Errorf("nil fact: %w", internalerr.ErrInvalidInput)
	}
	if f.Key() == "" {
		return invalid(f, "empty identity")
	}

	switch v := f.(type) {
	case Way:
		if v.AvgSpeed <= 0 {
			return invalid(f, "average speed must be positive")
		}
		if v.Length < 0 {
			return invalid(f, "negative length")
		}
	case Node:
		if v.Type != NodeLandmark && v.Type != NodeIntersection {
			return invalid(f, fmt.Sprintf("unknown node type %q", v.Type))
		}
	case TrafficLight:
		if v.Wait < 0 {
			return invalid(f, "negative wait")
		}
	case Event:
		if v.Duration < 0 {
			return invalid(f, "negative duration")
		}
	case Route:
		if len(v.Ways) == 0 {
			return invalid(f, "route without ways")
		}
		if len(v.Intersections) != len(v.Ways)+1 {
			return invalid(f, fmt.Sprintf("%d intersections for %d ways", len(v.Intersections), len(v.Ways)))
		}
		if v.Origin != v.Intersections[0] || v.Destination != v.Intersections[len(v.Intersections)-1] {
			return invalid(f, "origin/destination do not match intersection sequence")
		}
	case Flow:
		if !v.Level.Valid() {
			return invalid(f, fmt.Sprintf("unknown flow level %q", v.Level))
		}
	}
	return nil
}

func invalid(f Fact, msg string) error {
	return fmt.Errorf("%s %q: %s: %w", f.Kind(), f.Key(), msg, internalerr.ErrInvalidInput)
}
