// Package task implements the dependency-driven task execution engine.
//
// # Model
//
// A Task is a named unit of asynchronous work with a target template and
// declared dependencies. Dispatching a task first dispatches all of its
// dependencies concurrently, joins them, then runs the task's body with an
// inbox of dependency results and a fresh outbox for its own results.
//
// Tasks are memoized per identity: the task name for literal targets, the
// rendered template for dynamic ones. A (task, identity) pair executes its
// body at most once per process, no matter how many dependents race to
// dispatch it — each identity carries its own mutex, so the check-then-run
// sequence cannot interleave between two dispatchers.
//
// Dependents never see a live alias of a dependency's outbox. A dispatch
// publishes an outbox snapshot when it completes, and that snapshot is what
// lands in downstream inboxes; later dispatches of the same Task object under
// a different identity cannot mutate it.
//
// # Manager
//
// A Manager owns the task registry and a shared target.Resolver. Tasks
// declare dependencies by name so registration order does not matter;
// Finalize wires declared names into live edges exactly once per edge and
// rejects unknown names and cycles. Execute resolves a batch of target
// tokens, dispatches every resolved (task, substitutions) pair concurrently,
// and fails fast: the first body failure cancels the rest of the batch.
// Tokens matching no registered target are returned to the caller as data,
// not raised, since a resolver may coexist with other token domains.
package task
