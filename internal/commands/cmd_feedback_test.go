package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "short", truncateLine("short", 10))
	assert.Equal(t, "exactly10!", truncateLine("exactly10!", 10))

	got := truncateLine(strings.Repeat("a", 20), 10)
	assert.Equal(t, 10, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))

	// multi-byte input must be cut on rune boundaries
	got = truncateLine(strings.Repeat("é", 20), 10)
	assert.Equal(t, 10, len([]rune(got)))
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	t.Setenv("XDG_STATE_HOME", "/tmp/state")

	assert.Equal(t, "/tmp/cfg/prism/config.yaml", DefaultConfigPath())
	assert.Equal(t, "/tmp/data/prism", DefaultDataDir())
	assert.Equal(t, "/tmp/state/prism/prism.log", DefaultLogFile())
}
