package config

import "github.com/BurntSushi/toml"

// tomlParser adapts BurntSushi/toml to the koanf parser interface so .toml
// manifests flow through the same loader as YAML ones.
type tomlParser struct{}

func (tomlParser) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tomlParser) Marshal(m map[string]any) ([]byte, error) {
	return toml.Marshal(m)
}
