package eudamed

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the flat configuration namespace: slash-delimited logical paths
// mapped to scalar values. Paths mirror element and attribute names as the
// generator walks the schema, with repeated elements disambiguated by a
// zero-based bracketed index segment, e.g. "Root/Items[1]/code".
type Config map[string]any

// LoadConfig reads a YAML file and returns the flat mapping found under its
// top-level "defaults" key.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig parses YAML data holding a "defaults" mapping of flat paths to
// scalar values. Entries with null values are dropped.
func ParseConfig(data []byte) (Config, error) {
	var raw struct {
		Defaults map[string]any `yaml:"defaults"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}

	cfg := make(Config, len(raw.Defaults))
	for path, value := range raw.Defaults {
		if value == nil {
			continue
		}
		cfg[path] = value
	}
	return cfg, nil
}

// Get returns the scalar configured at exactly path.
func (c Config) Get(path string) (any, bool) {
	value, ok := c[path]
	return value, ok
}

// HasPrefix reports whether any configuration key is path itself or lies
// underneath it. Bracketed index segments are distinct from the bare path,
// so probing "Root/Items" does not hit "Root/Items[0]/code".
func (c Config) HasPrefix(path string) bool {
	if _, ok := c[path]; ok {
		return true
	}
	nested := path + "/"
	for key := range c {
		if strings.HasPrefix(key, nested) {
			return true
		}
	}
	return false
}

// Filter returns a fresh Config holding only the entries at or underneath
// path. Each generation target gets its own filtered copy so concurrent or
// repeated invocations cannot cross-contaminate.
func (c Config) Filter(path string) Config {
	out := make(Config)
	nested := path + "/"
	for key, value := range c {
		if key == path || strings.HasPrefix(key, nested) {
			out[key] = value
		}
	}
	return out
}

// joinPath appends a path segment.
func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "/" + name
}

// indexedPath appends an index-suffixed segment for repeated elements.
func indexedPath(base, name string, index int) string {
	return fmt.Sprintf("%s[%d]", joinPath(base, name), index)
}
