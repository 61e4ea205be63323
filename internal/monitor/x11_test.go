//go:build !windows

package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLatin1 verifies atom names are decoded byte per rune.
func TestLatin1(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"DP-1":      "DP-1",
		"\xe9cran":  "écran",
		"HDMI-\xb2": "HDMI-²",
		"\xff\xa0":  "\u00ff\u00a0",
	}
	for in, want := range tests {
		assert.Equal(t, want, latin1(in), "%q", in)
	}
}
