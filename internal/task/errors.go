package task

import (
	"fmt"
	"strings"
)

// FailedError indicates a task body returned an error (or reported failure)
// during a dispatch. The identity pinpoints which parameter binding failed.
type FailedError struct {
	Task     string
	Identity string
	Err      error
}

func (e *FailedError) Error() string {
	if e.Identity != "" && e.Identity != e.Task {
		return fmt.Sprintf("task %q (%s) failed: %v", e.Task, e.Identity, e.Err)
	}
	return fmt.Sprintf("task %q failed: %v", e.Task, e.Err)
}

func (e *FailedError) Unwrap() error { return e.Err }

// NoSuchTaskError indicates a declared dependency name with no registered
// task at finalize time, or an operation against an unknown task name.
type NoSuchTaskError struct {
	Task       string
	Dependency string
}

func (e *NoSuchTaskError) Error() string {
	if e.Dependency != "" {
		return fmt.Sprintf("task %q depends on unregistered task %q", e.Task, e.Dependency)
	}
	return fmt.Sprintf("no task registered as %q", e.Task)
}

// CycleError indicates the declared dependency graph contains a cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}
