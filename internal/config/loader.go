package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix namespaces taskmill's environment overrides.
	envPrefix = "TASKMILL_"

	maxManifestSize = 1024 * 1024 // 1MB
)

// Load reads a manifest file and overlays environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (TASKMILL_LOGGING_LEVEL, ...)
//  2. Manifest file (YAML by default, TOML for .toml paths)
//  3. Defaults
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}
	if info.Size() > maxManifestSize {
		return nil, fmt.Errorf("manifest too large: %d bytes (max %d)", info.Size(), maxManifestSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	cfg, err := LoadBytes(content, manifestFormat(path))
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return cfg, nil
}

// LoadBytes parses manifest content already in memory. Format is "yaml" or
// "toml". Environment overrides still apply.
func LoadBytes(content []byte, format string) (*Config, error) {
	k := koanf.New(".")

	var parser koanf.Parser
	switch format {
	case "toml":
		parser = tomlParser{}
	case "yaml", "yml":
		parser = yaml.Parser()
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}

	if err := k.Load(rawbytes.Provider(content), parser); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	// Environment overrides: strip the prefix, lowercase, then split on the
	// first underscore into section.field.
	//
	//	TASKMILL_LOGGING_LEVEL  -> logging.level
	//	TASKMILL_LOGGING_FORMAT -> logging.format
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}

	return &cfg, nil
}

// manifestFormat picks the parser from the file extension. Anything that is
// not .toml is treated as YAML, matching the documented default.
func manifestFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}
