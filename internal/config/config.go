package config

import (
	"fmt"

	"github.com/fyrsmithlabs/taskmill/internal/logging"
)

// Task kinds understood by Build.
const (
	KindExec  = "exec"
	KindSleep = "sleep"
	KindMerge = "merge"
	KindGroup = "group"
)

// Config is the root manifest structure.
type Config struct {
	Logging logging.Config `koanf:"logging"`
	Tasks   []TaskConfig   `koanf:"tasks"`
}

// TaskConfig declares one task in the manifest.
type TaskConfig struct {
	// Name is the task's target template, e.g. "build" or "build-{variant}".
	Name string `koanf:"name"`

	// Kind selects the task body: exec, sleep, merge, or group (no body,
	// dependencies only). Defaults to group.
	Kind string `koanf:"kind"`

	// Target optionally registers the task under a different template than
	// its name.
	Target string `koanf:"target"`

	// Dependencies lists the names of tasks that must resolve first.
	Dependencies []string `koanf:"dependencies"`

	// Command and Args configure exec tasks. Args may contain {placeholders}
	// rendered from dispatch substitutions.
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`

	// Duration configures sleep tasks.
	Duration Duration `koanf:"duration"`

	// Values configures merge tasks: entries melded over the merged inboxes.
	Values map[string]any `koanf:"values"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// Format doubles as the "logging section present" sentinel: the zero
	// zapcore.Level is already info.
	if cfg.Logging.Format == "" {
		cfg.Logging = *logging.NewDefaultConfig()
	}
	for i := range cfg.Tasks {
		if cfg.Tasks[i].Kind == "" {
			cfg.Tasks[i].Kind = KindGroup
		}
	}
}

// Validate checks the manifest for problems Build would otherwise surface
// later with worse messages.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	seen := make(map[string]int, len(c.Tasks))
	for i, tc := range c.Tasks {
		if tc.Name == "" {
			return fmt.Errorf("task %d: name is required", i)
		}
		if prev, ok := seen[tc.Name]; ok {
			return fmt.Errorf("task %d: name %q already declared by task %d", i, tc.Name, prev)
		}
		seen[tc.Name] = i

		switch tc.Kind {
		case KindGroup:
		case KindExec:
			if tc.Command == "" {
				return fmt.Errorf("task %q: exec tasks require a command", tc.Name)
			}
		case KindSleep:
			if tc.Duration.Duration() <= 0 {
				return fmt.Errorf("task %q: sleep tasks require a positive duration", tc.Name)
			}
		case KindMerge:
		default:
			return fmt.Errorf("task %q: unknown kind %q", tc.Name, tc.Kind)
		}
	}

	return nil
}
