package jactl

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FromYAML loads a YAML document at path and merges its top-level
// mapping into the Context's environment, the way a host might keep
// script globals (feature flags, connection settings) in a config file
// rather than wiring them up in Go. Grounded on the pack's yaml.v3 usage
// for host-side config loading (MongooseMoo-barn/funvibe-funxy), applied
// here to Context's environment map rather than to application config.
func (b *ContextBuilder) FromYAML(path string) (*ContextBuilder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	var env map[string]any
	if err := yaml.Unmarshal(data, &env); err != nil {
		return b, err
	}
	return b.Environment(env), nil
}
