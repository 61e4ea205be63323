package affinity

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptySpec is returned when a specification has no terms.
var ErrEmptySpec = errors.New("at least one affinity is required")

const notPrefix = "not-"

// Polarity selects a criterion or its complement.
type Polarity int

// Polarities.
const (
	Inclusive Polarity = iota
	Exclusive
)

func (p Polarity) String() string {
	if p == Exclusive {
		return "exclusive"
	}
	return "inclusive"
}

// Term is one criterion with its polarity.
type Term struct {
	Criterion Criterion
	Polarity  Polarity
}

// Is returns an inclusive term.
func Is(c Criterion) Term {
	return Term{Criterion: c, Polarity: Inclusive}
}

// Not returns an exclusive term.
func Not(c Criterion) Term {
	return Term{Criterion: c, Polarity: Exclusive}
}

// ParseTerm parses "<criterion>" or "not-<criterion>".
func ParseTerm(s string) (Term, error) {
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(raw)
	polarity := Inclusive
	if strings.HasPrefix(lower, notPrefix) {
		polarity = Exclusive
		raw = raw[len(notPrefix):]
		if raw == "" {
			return Term{}, fmt.Errorf("%q: missing criterion after %q", s, notPrefix)
		}
	}
	c, err := ParseCriterion(raw)
	if err != nil {
		return Term{}, err
	}
	return Term{Criterion: c, Polarity: polarity}, nil
}

// String renders the term in the form ParseTerm accepts.
func (t Term) String() string {
	if t.Polarity == Exclusive {
		return notPrefix + t.Criterion.String()
	}
	return t.Criterion.String()
}

// MarshalText implements encoding.TextMarshaler.
func (t Term) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Term) UnmarshalText(b []byte) error {
	parsed, err := ParseTerm(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Spec is an ordered, non-empty list of terms. Each term narrows the
// result of the previous one.
type Spec []Term

// ParseSpec parses a list of terms. Each value may itself hold a
// comma-separated list.
func ParseSpec(values []string) (Spec, error) {
	var spec Spec
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			t, err := ParseTerm(part)
			if err != nil {
				return nil, err
			}
			spec = append(spec, t)
		}
	}
	if len(spec) == 0 {
		return nil, ErrEmptySpec
	}
	return spec, nil
}

// Strings returns the textual form of every term.
func (s Spec) Strings() []string {
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = t.String()
	}
	return out
}

// Validate rejects empty specs and terms that were not built by the
// parser or the Is/Not constructors, such as a zero Term.
func (s Spec) Validate() error {
	if len(s) == 0 {
		return ErrEmptySpec
	}
	for i, t := range s {
		if !t.Criterion.Valid() {
			return fmt.Errorf("term %d: %w %v", i+1, ErrUnknownCriterion, t.Criterion)
		}
		if t.Polarity != Inclusive && t.Polarity != Exclusive {
			return fmt.Errorf("term %d: invalid polarity %d", i+1, int(t.Polarity))
		}
	}
	return nil
}

func (s Spec) String() string {
	return strings.Join(s.Strings(), ",")
}

// UnmarshalYAML accepts a sequence of terms or a comma-separated scalar.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	var values []string
	switch node.Kind {
	case yaml.ScalarNode:
		values = []string{node.Value}
	case yaml.SequenceNode:
		if err := node.Decode(&values); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: affinities must be a list or a string", node.Line)
	}
	parsed, err := ParseSpec(values)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = parsed
	return nil
}

// MarshalYAML renders the spec as a sequence of strings.
func (s Spec) MarshalYAML() (any, error) {
	return s.Strings(), nil
}
