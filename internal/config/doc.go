// Package config loads taskmill run manifests.
//
// A manifest declares the task graph and runner settings:
//
//	logging:
//	  level: info
//	  format: console
//	tasks:
//	  - name: deps
//	    kind: exec
//	    command: make
//	    args: [deps]
//	  - name: build-{variant}
//	    kind: exec
//	    command: make
//	    args: ["{variant}"]
//	    dependencies: [deps]
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (TASKMILL_LOGGING_LEVEL, ...)
//  2. Manifest file (YAML or TOML, chosen by extension)
//  3. Defaults
//
// Build materializes a task.Manager from a loaded manifest.
package config
