package facts

import (
	"fmt"
	"strings"

	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

// FlowLevel is one of six qualitative flow labels.
type FlowLevel string

const (
	FlowNull       FlowLevel = "nula"
	FlowVeryBad    FlowLevel = "muy mala"
	FlowBad        FlowLevel = "mala"
	FlowAcceptable FlowLevel = "aceptable"
	FlowGood       FlowLevel = "buena"
	FlowVeryGood   FlowLevel = "muy buena"
)

// FlowLevels lists the scale from worst to best.
var FlowLevels = []FlowLevel{FlowNull, FlowVeryBad, FlowBad, FlowAcceptable, FlowGood, FlowVeryGood}

var flowFactors = map[FlowLevel]float64{
	FlowVeryBad:    1.8,
	FlowBad:        1.4,
	FlowAcceptable: 1.1,
	FlowGood:       0.9,
	FlowVeryGood:   0.8,
}

// Factor returns the time multiplier for the level.
// FlowNull has no factor: the way is removed instead.
func (l FlowLevel) Factor() (float64, bool) {
	f, ok := flowFactors[l]
	return f, ok
}

// Valid reports whether l is on the scale.
func (l FlowLevel) Valid() bool {
	for _, v := range FlowLevels {
		if v == l {
			return true
		}
	}
	return false
}

// ParseFlowLevel accepts labels case-insensitively, with spaces or
// underscores ("Muy buena", "muy_buena").
func ParseFlowLevel(s string) (FlowLevel, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "_", " ")
	norm = strings.Join(strings.Fields(norm), " ")
	l := FlowLevel(norm)
	if !l.Valid() {
		return "", fmt.Errorf("flow level %q: %w", s, internalerr.ErrInvalidInput)
	}
	return l, nil
}
