package affinity

import (
	"sort"

	"github.com/frudas24/monlaunch/internal/monitor"
)

// Resolve applies spec to a snapshot and returns the surviving monitors
// sorted by name. monitors is not modified. An empty result is valid.
func Resolve(spec Spec, monitors []monitor.Monitor) []monitor.Monitor {
	working := monitor.Clone(monitors)
	for _, t := range spec {
		if t.Criterion.Ranking() {
			working = applyRanking(t, working)
		} else {
			working = applyPredicate(t, working)
		}
	}

	// Deterministic order when the terms leave zero or several monitors.
	sort.SliceStable(working, func(i, j int) bool {
		return working[i].Name < working[j].Name
	})
	return working
}

func applyPredicate(t Term, working []monitor.Monitor) []monitor.Monitor {
	want := t.Polarity == Inclusive
	out := working[:0]
	for _, m := range working {
		if t.Criterion.predicate(m) == want {
			out = append(out, m)
		}
	}
	return out
}

func applyRanking(t Term, working []monitor.Monitor) []monitor.Monitor {
	if len(working) == 0 {
		return working
	}
	if len(working) == 1 && t.Polarity == Exclusive {
		return working[:0]
	}

	sort.SliceStable(working, func(i, j int) bool {
		return t.Criterion.key(working[i]) < t.Criterion.key(working[j])
	})
	best := t.Criterion.key(working[0])

	keep := t.Polarity == Inclusive
	out := working[:0]
	for _, m := range working {
		if (t.Criterion.key(m) == best) == keep {
			out = append(out, m)
		}
	}
	return out
}
