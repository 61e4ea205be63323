package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frudas24/monlaunch/internal/monitor"
)

// TestPending_OnlyNewTargets verifies only targets not yet applied are returned.
func TestPending_OnlyNewTargets(t *testing.T) {
	s := New()
	assert.Equal(t, []string{"DP-1", "DP-2"}, s.Pending("bar", []string{"DP-1", "DP-2"}))

	s.Record(Rule{Label: "bar", Key: "bar", Selected: []string{"DP-1", "DP-2"}, Targets: []string{"DP-1"}, Spawned: 1})
	assert.Empty(t, s.Pending("bar", []string{"DP-1"}))
	assert.Equal(t, []string{"DP-2"}, s.Pending("bar", []string{"DP-2"}))
	assert.Empty(t, s.Pending("bar", nil))
	assert.Equal(t, []string{"DP-1"}, s.Pending("other", []string{"DP-1"}))
}

// TestRecord_AccumulatesCounts verifies later passes keep earlier spawn counts.
func TestRecord_AccumulatesCounts(t *testing.T) {
	s := New()
	applied := time.Unix(100, 0)
	s.Record(Rule{Key: "k", Targets: []string{"A"}, Spawned: 1, Applied: applied})
	s.Record(Rule{Key: "k", Targets: []string{"A", "B"}, Spawned: 1, Failed: 1})

	snap := s.Snapshot()
	require.Len(t, snap.Rules, 1)
	assert.Equal(t, 2, snap.Rules[0].Spawned)
	assert.Equal(t, 1, snap.Rules[0].Failed)
	assert.Equal(t, applied, snap.Rules[0].Applied)
	assert.Equal(t, []string{"A", "B"}, snap.Rules[0].Targets)
}

// TestBeginPass_CountsGenerations verifies each pass stores its snapshot.
func TestBeginPass_CountsGenerations(t *testing.T) {
	s := New()
	now := time.Unix(100, 0)
	assert.Equal(t, 1, s.BeginPass([]monitor.Monitor{{Name: "DP-1"}}, now))
	assert.Equal(t, 2, s.BeginPass([]monitor.Monitor{{Name: "DP-2"}}, now.Add(time.Second)))

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Generation)
	assert.Equal(t, now.Add(time.Second), snap.LastPass)
	assert.Equal(t, []string{"DP-2"}, monitor.Names(s.Monitors()))
}

// TestSnapshot_IsDeepCopy verifies callers cannot mutate recorded selections.
func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := New()
	sel := []string{"DP-1"}
	s.Record(Rule{Key: "k", Selected: sel})
	sel[0] = "mutated"

	snap := s.Snapshot()
	require.Len(t, snap.Rules, 1)
	snap.Rules[0].Selected[0] = "mutated"
	assert.Equal(t, []string{"DP-1"}, s.Snapshot().Rules[0].Selected)
}

// TestRetain_DropsRemovedRules verifies reloads forget rules that no longer exist.
func TestRetain_DropsRemovedRules(t *testing.T) {
	s := New()
	s.Record(Rule{Key: "a", Targets: []string{"DP-1"}})
	s.Record(Rule{Key: "b", Targets: []string{"DP-2"}})
	s.Record(Rule{Key: "c", Targets: []string{"DP-3"}})

	s.Retain([]string{"c", "a"})
	snap := s.Snapshot()
	require.Len(t, snap.Rules, 2)
	assert.Equal(t, "a", snap.Rules[0].Key)
	assert.Equal(t, "c", snap.Rules[1].Key)
	assert.Equal(t, []string{"DP-2"}, s.Pending("b", []string{"DP-2"}))
	assert.Empty(t, s.Pending("c", []string{"DP-3"}))
}
