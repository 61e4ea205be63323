// Package state holds the launcher's runtime state between passes.
package state

import (
	"slices"
	"sync"
	"time"

	"github.com/frudas24/monlaunch/internal/monitor"
)

// Rule describes the last applied pass of one rule. Selected is every
// monitor the affinities chose; Targets are the monitors processes were
// started on.
type Rule struct {
	Label    string    `json:"label"`
	Key      string    `json:"-"`
	Selected []string  `json:"selected"`
	Targets  []string  `json:"targets"`
	Spawned  int       `json:"spawned"`
	Failed   int       `json:"failed"`
	Applied  time.Time `json:"applied"`
}

// Snapshot represents a read-only view of the current state.
type Snapshot struct {
	Generation int               `json:"generation"`
	LastPass   time.Time         `json:"lastPass"`
	Monitors   []monitor.Monitor `json:"monitors"`
	Rules      []Rule            `json:"rules"`
}

// State is safe for concurrent use.
type State struct {
	mu         sync.RWMutex
	generation int
	lastPass   time.Time
	monitors   []monitor.Monitor
	rules      []Rule
	byKey      map[string]int
}

// New returns an empty state.
func New() *State {
	return &State{byKey: make(map[string]int)}
}

// BeginPass records a new snapshot and returns the pass generation.
func (s *State) BeginPass(monitors []monitor.Monitor, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.lastPass = now
	s.monitors = monitor.Clone(monitors)
	return s.generation
}

// Monitors returns a copy of the last snapshot.
func (s *State) Monitors() []monitor.Monitor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return monitor.Clone(s.monitors)
}

// Pending returns the targets the rule identified by key has not been
// applied to yet. Every target is pending for an unknown key.
func (s *State) Pending(key string, targets []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byKey[key]
	if !ok {
		return slices.Clone(targets)
	}
	var out []string
	for _, t := range targets {
		if !slices.Contains(s.rules[i].Targets, t) {
			out = append(out, t)
		}
	}
	return out
}

// Record stores the outcome of a pass. Selection and targets replace the
// previous ones; spawn counts accumulate and Applied keeps its previous
// value when r has none.
func (s *State) Record(r Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Selected = slices.Clone(r.Selected)
	r.Targets = slices.Clone(r.Targets)
	if i, ok := s.byKey[r.Key]; ok {
		prev := s.rules[i]
		r.Spawned += prev.Spawned
		r.Failed += prev.Failed
		if r.Applied.IsZero() {
			r.Applied = prev.Applied
		}
		s.rules[i] = r
		return
	}
	s.byKey[r.Key] = len(s.rules)
	s.rules = append(s.rules, r)
}

// Retain drops rules whose key is not in keys, after a config reload.
func (s *State) Retain(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := make(map[string]bool, len(keys))
	for _, k := range keys {
		keep[k] = true
	}
	rules := s.rules[:0]
	byKey := make(map[string]int, len(keys))
	for _, r := range s.rules {
		if keep[r.Key] {
			byKey[r.Key] = len(rules)
			rules = append(rules, r)
		}
	}
	s.rules = rules
	s.byKey = byKey
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		r.Selected = slices.Clone(r.Selected)
		r.Targets = slices.Clone(r.Targets)
		rules[i] = r
	}
	return Snapshot{
		Generation: s.generation,
		LastPass:   s.lastPass,
		Monitors:   monitor.Clone(s.monitors),
		Rules:      rules,
	}
}
