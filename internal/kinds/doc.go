// Package kinds provides the built-in task bodies: subprocess execution,
// delays, and inbox merging. Each constructor wraps a body into a task.Task;
// anything the engine needs beyond these arrives as a custom task.Body.
package kinds
