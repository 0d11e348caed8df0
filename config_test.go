package eudamed

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
defaults:
  MDRDevice/riskClass: CLASS_IIA
  MDRDevice/UDIDIData[0]/DICode: "05993021234569"
  MDRDevice/sterile: false
  MDRDevice/quantity: 3
  MDRDevice/unused: null
`))
	require.NoError(t, err)

	value, ok := cfg.Get("MDRDevice/riskClass")
	require.True(t, ok)
	assert.Equal(t, "CLASS_IIA", value)

	value, ok = cfg.Get("MDRDevice/sterile")
	require.True(t, ok)
	assert.Equal(t, false, value)

	value, ok = cfg.Get("MDRDevice/quantity")
	require.True(t, ok)
	assert.Equal(t, 3, value)

	_, ok = cfg.Get("MDRDevice/unused")
	assert.False(t, ok, "null entries are dropped")
}

func TestParseConfigRejectsMalformedYAML(t *testing.T) {
	_, err := ParseConfig([]byte("defaults: [not a\tmapping"))
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigHasPrefix(t *testing.T) {
	cfg := Config{
		"Root/Items[0]/code": "A",
		"Root/Child":         "X",
	}

	assert.True(t, cfg.HasPrefix("Root/Child"), "exact key")
	assert.True(t, cfg.HasPrefix("Root/Items[0]"), "nested key")
	assert.True(t, cfg.HasPrefix("Root"))
	assert.False(t, cfg.HasPrefix("Root/Items"),
		"bracketed index segments do not answer for the bare path")
	assert.False(t, cfg.HasPrefix("Root/Chi"), "no partial segment matches")
	assert.False(t, cfg.HasPrefix("Other"))
}

func TestConfigFilter(t *testing.T) {
	cfg := Config{
		"MDRDevice/riskClass":        "CLASS_I",
		"MDRDevice/UDIDIData[0]/DI":  "0599",
		"MDRBasicUDI/identifier":     "GMN",
		"MDRDeviceExtra/otherfields": "x",
	}

	filtered := cfg.Filter("MDRDevice")
	assert.Len(t, filtered, 2)
	assert.True(t, filtered.HasPrefix("MDRDevice/riskClass"))
	assert.False(t, filtered.HasPrefix("MDRBasicUDI"))
	assert.False(t, filtered.HasPrefix("MDRDeviceExtra"),
		"prefix match is per path segment, not per character")

	// The filtered copy is independent of the source.
	filtered["MDRDevice/added"] = "y"
	_, ok := cfg.Get("MDRDevice/added")
	assert.False(t, ok)
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, "Root/Child", joinPath("Root", "Child"))
	assert.Equal(t, "Child", joinPath("", "Child"))
	assert.Equal(t, "Root/Items[2]", indexedPath("Root", "Items", 2))
	assert.Equal(t, "Items[0]", indexedPath("", "Items", 0))
}
