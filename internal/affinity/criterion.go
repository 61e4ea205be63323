// Package affinity narrows a monitor snapshot to the monitors matching an
// ordered list of criteria.
package affinity

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/frudas24/monlaunch/internal/monitor"
)

// ErrUnknownCriterion is returned when a criterion name is not recognised.
var ErrUnknownCriterion = errors.New("unknown affinity")

// Criterion names a desired monitor property.
type Criterion int

// Criteria. Primary through Landscape follow the classic set; Densest and
// Sparsest rank by horizontal pixel density.
const (
	Primary Criterion = iota + 1
	NonPrimary
	Largest
	Smallest
	Leftmost
	Rightmost
	Topmost
	Bottommost
	Portrait
	Landscape
	Densest
	Sparsest
)

var criterionNames = map[Criterion]string{
	Primary:    "primary",
	NonPrimary: "nonprimary",
	Largest:    "largest",
	Smallest:   "smallest",
	Leftmost:   "leftmost",
	Rightmost:  "rightmost",
	Topmost:    "topmost",
	Bottommost: "bottommost",
	Portrait:   "portrait",
	Landscape:  "landscape",
	Densest:    "densest",
	Sparsest:   "sparsest",
}

// Criteria returns every criterion in declaration order.
func Criteria() []Criterion {
	out := make([]Criterion, 0, len(criterionNames))
	for c := Primary; c <= Sparsest; c++ {
		out = append(out, c)
	}
	return out
}

// Valid reports whether c is a known criterion.
func (c Criterion) Valid() bool {
	_, ok := criterionNames[c]
	return ok
}

// String returns the canonical lower-case name.
func (c Criterion) String() string {
	if name, ok := criterionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Criterion(%d)", int(c))
}

// ParseCriterion parses a criterion name, case-insensitively.
func ParseCriterion(s string) (Criterion, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "non-primary", "non_primary":
		return NonPrimary, nil
	}
	for c, n := range criterionNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownCriterion, s)
}

// Ranking reports whether c is resolved by sorting on a key rather than by
// a boolean predicate.
func (c Criterion) Ranking() bool {
	switch c {
	case Largest, Smallest, Leftmost, Rightmost, Topmost, Bottommost, Densest, Sparsest:
		return true
	default:
		return false
	}
}

// predicate evaluates a predicate criterion.
func (c Criterion) predicate(m monitor.Monitor) bool {
	switch c {
	case Primary:
		return m.Primary
	case NonPrimary:
		return !m.Primary
	case Portrait:
		return m.Portrait()
	case Landscape:
		return m.Landscape()
	default:
		panic(fmt.Sprintf("affinity: %v is not a predicate", c))
	}
}

// key returns the ranking key of m for c. The smallest key is always the
// wanted extreme.
func (c Criterion) key(m monitor.Monitor) uint64 {
	switch c {
	case Largest:
		return ^m.Area()
	case Smallest:
		return m.Area()
	case Leftmost:
		return ordered(m.X)
	case Rightmost:
		return ^ordered(m.X)
	case Topmost:
		return ordered(m.Y)
	case Bottommost:
		return ^ordered(m.Y)
	case Densest:
		if d, ok := m.Density(); ok {
			return ^d
		}
		return math.MaxUint64
	case Sparsest:
		if d, ok := m.Density(); ok {
			return d
		}
		return math.MaxUint64
	default:
		panic(fmt.Sprintf("affinity: %v is not a ranking", c))
	}
}

// ordered maps a signed coordinate onto uint64 preserving order.
func ordered(v int) uint64 {
	return uint64(int64(v)) ^ (1 << 63)
}
