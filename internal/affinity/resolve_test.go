package affinity

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frudas24/monlaunch/internal/monitor"
)

func primaryMon() monitor.Monitor {
	return monitor.Monitor{Name: "PRIMARY", X: 0, Y: 0, W: 1920, H: 1080, Primary: true}
}

func largeMon() monitor.Monitor {
	return monitor.Monitor{Name: "LARGE", X: 1920, Y: 0, W: 3440, H: 1440}
}

// topMon sits above PRIMARY; y grows downward.
func topMon() monitor.Monitor {
	return monitor.Monitor{Name: "TOP", X: 0, Y: -768, W: 1024, H: 768}
}

func rotatedMon() monitor.Monitor {
	return monitor.Monitor{Name: "ROTATED", X: -768, Y: 0, W: 768, H: 1024}
}

func resolveNames(spec Spec, list ...monitor.Monitor) []string {
	return monitor.Names(Resolve(spec, list))
}

// TestResolve_SingleCriterion verifies each criterion picks the expected monitor.
func TestResolve_SingleCriterion(t *testing.T) {
	cases := []struct {
		name     string
		term     Term
		monitors []monitor.Monitor
		want     string
	}{
		{"largest", Is(Largest), []monitor.Monitor{primaryMon(), largeMon()}, "LARGE"},
		{"smallest", Is(Smallest), []monitor.Monitor{largeMon(), primaryMon()}, "PRIMARY"},
		{"primary", Is(Primary), []monitor.Monitor{largeMon(), primaryMon()}, "PRIMARY"},
		{"nonprimary", Is(NonPrimary), []monitor.Monitor{primaryMon(), largeMon()}, "LARGE"},
		{"leftmost", Is(Leftmost), []monitor.Monitor{primaryMon(), largeMon()}, "PRIMARY"},
		{"rightmost", Is(Rightmost), []monitor.Monitor{primaryMon(), largeMon()}, "LARGE"},
		{"topmost", Is(Topmost), []monitor.Monitor{primaryMon(), topMon()}, "TOP"},
		{"bottommost", Is(Bottommost), []monitor.Monitor{topMon(), primaryMon()}, "PRIMARY"},
		{"portrait", Is(Portrait), []monitor.Monitor{primaryMon(), rotatedMon()}, "ROTATED"},
		{"landscape", Is(Landscape), []monitor.Monitor{rotatedMon(), primaryMon()}, "PRIMARY"},
		{"leftmost negative x", Is(Leftmost), []monitor.Monitor{primaryMon(), rotatedMon()}, "ROTATED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, []string{tc.want}, resolveNames(Spec{tc.term}, tc.monitors...))
		})
	}
}

// TestResolve_Density verifies density ranking and that unknown sizes rank last.
func TestResolve_Density(t *testing.T) {
	hidpi := monitor.Monitor{Name: "HIDPI", W: 3840, H: 2160, WidthMM: 600, HeightMM: 340}
	lodpi := monitor.Monitor{Name: "LODPI", X: 3840, W: 1920, H: 1080, WidthMM: 600, HeightMM: 340}
	unknown := monitor.Monitor{Name: "UNKNOWN", X: 5760, W: 1920, H: 1080}

	assert.Equal(t, []string{"HIDPI"}, resolveNames(Spec{Is(Densest)}, unknown, lodpi, hidpi))
	assert.Equal(t, []string{"LODPI"}, resolveNames(Spec{Is(Sparsest)}, unknown, hidpi, lodpi))
	assert.Equal(t, []string{"LODPI", "UNKNOWN"}, resolveNames(Spec{Not(Densest)}, unknown, lodpi, hidpi))
}

// TestResolve_MatchesAll verifies a predicate true for every monitor keeps them all.
func TestResolve_MatchesAll(t *testing.T) {
	got := resolveNames(Spec{Is(Landscape)}, primaryMon(), topMon(), largeMon())
	assert.Equal(t, []string{"LARGE", "PRIMARY", "TOP"}, got)
}

// TestResolve_MatchesNone verifies an empty result is not an error.
func TestResolve_MatchesNone(t *testing.T) {
	got := Resolve(Spec{Is(Portrait)}, []monitor.Monitor{primaryMon(), topMon(), largeMon()})
	assert.Empty(t, got)
}

// TestResolve_MultipleCriteria verifies later terms break ties left by earlier ones.
func TestResolve_MultipleCriteria(t *testing.T) {
	spec := Spec{Is(Landscape), Is(Leftmost), Is(Bottommost)}
	got := resolveNames(spec, primaryMon(), topMon(), largeMon(), rotatedMon())
	assert.Equal(t, []string{"PRIMARY"}, got)
}

// TestResolve_RankingKeepsTies verifies every monitor sharing the extreme survives.
func TestResolve_RankingKeepsTies(t *testing.T) {
	a := monitor.Monitor{Name: "B", X: 0, W: 2560, H: 1440}
	b := monitor.Monitor{Name: "A", X: 2560, W: 2560, H: 1440}
	c := monitor.Monitor{Name: "C", X: 5120, W: 1920, H: 1080}

	assert.Equal(t, []string{"A", "B"}, resolveNames(Spec{Is(Largest)}, a, c, b))
	assert.Equal(t, []string{"C"}, resolveNames(Spec{Not(Largest)}, a, c, b))
	assert.Empty(t, resolveNames(Spec{Not(Largest)}, a, b))
}

// TestResolve_ExclusivePredicate verifies not-primary keeps the complement.
func TestResolve_ExclusivePredicate(t *testing.T) {
	got := resolveNames(Spec{Not(Primary)}, primaryMon(), topMon(), largeMon())
	assert.Equal(t, []string{"LARGE", "TOP"}, got)
}

// TestResolve_ExclusiveSingleton verifies "not the extreme" of one monitor is nothing.
func TestResolve_ExclusiveSingleton(t *testing.T) {
	assert.Empty(t, Resolve(Spec{Not(Bottommost)}, []monitor.Monitor{topMon()}))

	// The singleton may also be produced by an earlier term.
	spec := Spec{Is(Primary), Not(Largest)}
	assert.Empty(t, Resolve(spec, []monitor.Monitor{primaryMon(), largeMon()}))
}

// TestResolve_EmptySnapshot verifies every criterion tolerates no monitors.
func TestResolve_EmptySnapshot(t *testing.T) {
	for _, c := range Criteria() {
		assert.Empty(t, Resolve(Spec{Is(c)}, nil), c.String())
		assert.Empty(t, Resolve(Spec{Not(c)}, nil), c.String())
	}
}

// TestResolve_DoesNotMutateInput verifies the caller's snapshot keeps its order.
func TestResolve_DoesNotMutateInput(t *testing.T) {
	in := []monitor.Monitor{topMon(), largeMon(), primaryMon()}
	_ = Resolve(Spec{Is(Largest), Not(Primary)}, in)
	assert.Equal(t, []string{"TOP", "LARGE", "PRIMARY"}, monitor.Names(in))
}

// TestResolve_Properties checks the engine's invariants over random snapshots.
func TestResolve_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	criteria := Criteria()

	for iter := 0; iter < 500; iter++ {
		list := randomSnapshot(rng)

		for _, c := range criteria {
			inc := Resolve(Spec{Is(c)}, list)
			exc := Resolve(Spec{Not(c)}, list)
			assertSortedByName(t, inc)
			assertSortedByName(t, exc)

			if !c.Ranking() {
				want := filter(list, func(m monitor.Monitor) bool { return c.predicate(m) })
				assert.Equal(t, sortedNames(want), monitor.Names(inc), c.String())
				want = filter(list, func(m monitor.Monitor) bool { return !c.predicate(m) })
				assert.Equal(t, sortedNames(want), monitor.Names(exc), c.String())
				continue
			}

			require.NotEmpty(t, inc)
			best := c.key(inc[0])
			for _, m := range inc {
				assert.Equal(t, best, c.key(m))
			}
			for _, m := range list {
				if c.key(m) <= best {
					assert.Contains(t, monitor.Names(inc), m.Name)
				}
			}
			if len(list) > 1 {
				want := filter(list, func(m monitor.Monitor) bool { return c.key(m) != best })
				assert.Equal(t, sortedNames(want), monitor.Names(exc), c.String())
			}
		}

		// Adding a term never widens the result.
		var spec Spec
		prev := len(list)
		for n := 0; n < 4; n++ {
			term := Term{Criterion: criteria[rng.Intn(len(criteria))], Polarity: Polarity(rng.Intn(2))}
			spec = append(spec, term)
			got := Resolve(spec, list)
			assert.LessOrEqual(t, len(got), prev, spec.String())
			assertSortedByName(t, got)
			prev = len(got)
		}
	}
}

func randomSnapshot(rng *rand.Rand) []monitor.Monitor {
	names := []string{"DP-1", "DP-2", "HDMI-1", "HDMI-2", "eDP-1", "DVI-0"}
	rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	sizes := [][2]uint32{{1920, 1080}, {1080, 1920}, {2560, 1440}, {1000, 1000}, {3440, 1440}}

	n := 1 + rng.Intn(len(names))
	list := make([]monitor.Monitor, 0, n)
	for i := 0; i < n; i++ {
		size := sizes[rng.Intn(len(sizes))]
		m := monitor.Monitor{
			Name:    names[i],
			X:       rng.Intn(3)*1920 - 1920,
			Y:       rng.Intn(3)*1080 - 1080,
			W:       size[0],
			H:       size[1],
			Primary: i == 0 && rng.Intn(2) == 0,
		}
		if rng.Intn(2) == 0 {
			m.WidthMM = uint32(300 + rng.Intn(3)*150)
		}
		list = append(list, m)
	}
	return list
}

func filter(list []monitor.Monitor, keep func(monitor.Monitor) bool) []monitor.Monitor {
	var out []monitor.Monitor
	for _, m := range list {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func sortedNames(list []monitor.Monitor) []string {
	names := monitor.Names(list)
	sort.Strings(names)
	return names
}

func assertSortedByName(t *testing.T, list []monitor.Monitor) {
	t.Helper()
	assert.True(t, sort.SliceIsSorted(list, func(i, j int) bool { return list[i].Name < list[j].Name }))
}
