// Package monitor describes display geometry and enumeration.
package monitor

import (
	"context"
	"sort"
)

// Monitor describes a display and its bounds in virtual screen coordinates.
// Y grows downward.
type Monitor struct {
	Name     string `json:"name" yaml:"name"`
	X        int    `json:"x" yaml:"x"`
	Y        int    `json:"y" yaml:"y"`
	W        uint32 `json:"width" yaml:"width"`
	H        uint32 `json:"height" yaml:"height"`
	Primary  bool   `json:"primary" yaml:"primary"`
	WidthMM  uint32 `json:"widthMM,omitempty" yaml:"width_mm,omitempty"`
	HeightMM uint32 `json:"heightMM,omitempty" yaml:"height_mm,omitempty"`
}

// Area returns the pixel area. The product of two uint32 always fits.
func (m Monitor) Area() uint64 {
	return uint64(m.W) * uint64(m.H)
}

// Landscape reports whether the monitor is wider than it is tall.
func (m Monitor) Landscape() bool {
	return m.W > m.H
}

// Portrait reports whether the monitor is taller than it is wide.
func (m Monitor) Portrait() bool {
	return m.H > m.W
}

// Density returns horizontal pixels per metre. ok is false when the
// physical width is unknown.
func (m Monitor) Density() (uint64, bool) {
	if m.WidthMM == 0 {
		return 0, false
	}
	return uint64(m.W) * 1000 / uint64(m.WidthMM), true
}

// Source produces monitor snapshots.
type Source interface {
	List(ctx context.Context) ([]Monitor, error)
}

// Watcher blocks and calls notify whenever the monitor topology may have
// changed. It returns nil when ctx is cancelled.
type Watcher interface {
	Watch(ctx context.Context, notify func()) error
}

// Static is a fixed snapshot, used for replays and tests.
type Static []Monitor

// List returns a copy of the fixed snapshot.
func (s Static) List(context.Context) ([]Monitor, error) {
	return Clone(s), nil
}

// Clone returns a copy of list.
func Clone(list []Monitor) []Monitor {
	if list == nil {
		return nil
	}
	out := make([]Monitor, len(list))
	copy(out, list)
	return out
}

// Names returns the monitor names in list order.
func Names(list []Monitor) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.Name)
	}
	return out
}

// Equal reports whether two snapshots describe the same topology,
// ignoring enumeration order.
func Equal(a, b []Monitor) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := sortedByName(a), sortedByName(b)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func sortedByName(list []Monitor) []Monitor {
	out := Clone(list)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}
