package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/taskmill/internal/logging"
	"github.com/fyrsmithlabs/taskmill/internal/target"
)

// Outbox is a task's published result mapping. A dispatch gets a fresh
// outbox, and the snapshot published on success is never written again.
type Outbox map[string]any

// Clone returns a shallow copy of the outbox.
func (o Outbox) Clone() Outbox {
	if o == nil {
		return nil
	}
	out := make(Outbox, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Inbox maps dependency names to their published outbox snapshots.
type Inbox map[string]Outbox

// Body is the opaque task-body capability: it reads dependency results from
// the inbox, writes its own results into the outbox, and reports failure by
// returning a non-nil error.
type Body func(ctx context.Context, inbox Inbox, outbox Outbox, substitutions map[string]string) error

// dependency binds default substitutions to a dependency task. At dispatch
// time the caller's substitutions are merged over the bound defaults.
type dependency struct {
	task  *Task
	bound map[string]string
}

// identity is the per-binding completion state of a task. The mutex guards
// the check-then-run sequence across the whole dispatch, so two dispatches
// racing to the same not-yet-resolved identity serialize and the loser
// observes the winner's result.
type identity struct {
	mu             sync.Mutex
	resolved       bool
	outbox         Outbox
	dependencyTime time.Duration
	executeTime    time.Duration
}

// Stats is a snapshot of one identity's timing measurements.
type Stats struct {
	Resolved       bool
	DependencyTime time.Duration
	ExecuteTime    time.Duration
}

// Task is a named unit of work in a dependency graph. The Task object is
// shared infrastructure: a dynamic task is instantiated per rendered identity
// at dispatch time, each identity memoized independently.
type Task struct {
	name   string
	target *target.Target
	body   Body
	log    *logging.Logger
	hooks  Hooks

	mu           sync.Mutex
	dependencies []dependency
	identities   map[string]*identity

	dispatches  atomic.Int64
	invocations atomic.Int64
}

// Option configures task construction.
type Option func(*Task)

// WithBody supplies the task body. Tasks without a body log their inputs and
// succeed.
func WithBody(body Body) Option {
	return func(t *Task) { t.body = body }
}

// WithLogger injects the task's logger.
func WithLogger(log *logging.Logger) Option {
	return func(t *Task) { t.log = log }
}

// WithHooks attaches lifecycle hooks to this task.
func WithHooks(hooks Hooks) Option {
	return func(t *Task) { t.hooks = t.hooks.Merge(hooks) }
}

// New constructs a task. The name doubles as the task's target template, so
// a name like "build-{variant}" produces a dynamic task; template syntax
// errors surface here, at construction.
func New(name string, opts ...Option) (*Task, error) {
	if name == "" {
		return nil, fmt.Errorf("task: name must not be empty")
	}
	tmpl, err := target.Parse(name)
	if err != nil {
		return nil, err
	}

	t := &Task{
		name:       name,
		target:     tmpl,
		identities: make(map[string]*identity),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = logging.NewNop()
	}
	if t.body == nil {
		t.body = t.defaultBody
	}
	return t, nil
}

// MustNew is New that panics on error, for statically known names.
func MustNew(name string, opts ...Option) *Task {
	t, err := New(name, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Target returns the task's compiled target template.
func (t *Task) Target() *target.Target { return t.target }

// Dynamic reports whether this task's target carries placeholders.
func (t *Task) Dynamic() bool { return !t.target.Literal() }

// Dispatches returns how many times Dispatch was called, including no-op
// replays of resolved identities.
func (t *Task) Dispatches() int64 { return t.dispatches.Load() }

// Invocations returns how many times the body actually executed.
func (t *Task) Invocations() int64 { return t.invocations.Load() }

// DependOn declares other as a dependency, optionally binding default
// substitutions that the caller's substitutions override at dispatch time.
func (t *Task) DependOn(other *Task, bound map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dependencies = append(t.dependencies, dependency{task: other, bound: cloneStrings(bound)})
}

// DependsOn reports whether other is already a direct dependency.
func (t *Task) DependsOn(other *Task) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, dep := range t.dependencies {
		if dep.task == other {
			return true
		}
	}
	return false
}

// Dependencies returns the names of direct dependencies.
func (t *Task) Dependencies() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.dependencies))
	for _, dep := range t.dependencies {
		names = append(names, dep.task.name)
	}
	return names
}

// Identity renders this dispatch's memoization key. Literal tasks use the
// task name; dynamic tasks render their template with the substitutions.
func (t *Task) Identity(substitutions map[string]string) (string, error) {
	if t.target.Literal() {
		return t.name, nil
	}
	return t.target.Render(substitutions)
}

// Resolved reports whether an identity has successfully completed.
func (t *Task) Resolved(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.identities[id]
	if !ok {
		return false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.resolved
}

// ResolvedIdentities returns every identity that has completed.
func (t *Task) ResolvedIdentities() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for id, state := range t.identities {
		state.mu.Lock()
		if state.resolved {
			out = append(out, id)
		}
		state.mu.Unlock()
	}
	return out
}

// IdentityStats returns timing measurements for an identity.
func (t *Task) IdentityStats(id string) (Stats, bool) {
	t.mu.Lock()
	state, ok := t.identities[id]
	t.mu.Unlock()
	if !ok {
		return Stats{}, false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return Stats{
		Resolved:       state.resolved,
		DependencyTime: state.dependencyTime,
		ExecuteTime:    state.executeTime,
	}, true
}

// Dispatch runs this task once for the identity produced by substitutions:
// dependencies fan out concurrently and join, then the body runs. An already
// resolved identity returns its published outbox without re-executing.
func (t *Task) Dispatch(ctx context.Context, substitutions map[string]string) (Outbox, error) {
	return t.dispatch(ctx, substitutions, false)
}

// DryRun warms the dependency graph for this dispatch without executing any
// body and without marking anything resolved.
func (t *Task) DryRun(ctx context.Context, substitutions map[string]string) error {
	_, err := t.dispatch(ctx, substitutions, true)
	return err
}

func (t *Task) dispatch(ctx context.Context, substitutions map[string]string, initOnly bool) (Outbox, error) {
	t.dispatches.Add(1)

	merged := cloneStrings(substitutions)
	id, err := t.Identity(merged)
	if err != nil {
		return nil, err
	}

	state := t.identityState(id)
	state.mu.Lock()
	defer state.mu.Unlock()

	// At-most-once execution is the core contract: a resolved identity is a
	// no-op, including for dry runs.
	if state.resolved {
		return state.outbox, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx = logging.WithTask(ctx, t.name)
	ctx = logging.WithIdentity(ctx, id)

	inbox, depTime, err := t.dispatchDependencies(ctx, merged, initOnly)
	if err != nil {
		return nil, err
	}
	state.dependencyTime = depTime
	t.log.Debug(ctx, "dependencies complete", zap.Duration("elapsed", depTime))

	// A dry run validates and warms the graph but performs no side effects
	// and resolves nothing.
	if initOnly {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	event := Event{Task: t.name, Identity: id, Dynamic: t.Dynamic(), DependencyTime: depTime}
	t.hooks.start(event)

	outbox := make(Outbox)
	start := time.Now()
	if err := t.body(ctx, inbox, outbox, merged); err != nil {
		failed := &FailedError{Task: t.name, Identity: id, Err: err}
		event.Err = failed
		t.hooks.failure(event)
		t.log.Error(ctx, "task failed", zap.Error(err))
		return nil, failed
	}
	state.executeTime = time.Since(start)
	t.invocations.Add(1)

	// Publish a snapshot: dependents receive this frozen copy, never a live
	// alias a later dispatch could overwrite.
	state.outbox = outbox.Clone()
	state.resolved = true

	event.ExecuteTime = state.executeTime
	t.hooks.success(event)
	t.log.Debug(ctx, "task resolved", zap.Duration("execute", state.executeTime))
	return state.outbox, nil
}

// dispatchDependencies fans out every dependency closure with the merged
// substitutions and joins them all before returning.
func (t *Task) dispatchDependencies(ctx context.Context, merged map[string]string, initOnly bool) (Inbox, time.Duration, error) {
	t.mu.Lock()
	deps := make([]dependency, len(t.dependencies))
	copy(deps, t.dependencies)
	t.mu.Unlock()

	inbox := make(Inbox, len(deps))
	if len(deps) == 0 {
		return inbox, 0, nil
	}

	var inboxMu sync.Mutex
	start := time.Now()
	group, groupCtx := errgroup.WithContext(ctx)
	for _, dep := range deps {
		group.Go(func() error {
			// Bound defaults sit under the caller's substitutions.
			depSubs := cloneStrings(dep.bound)
			for k, v := range merged {
				depSubs[k] = v
			}
			out, err := dep.task.dispatch(groupCtx, depSubs, initOnly)
			if err != nil {
				return err
			}
			inboxMu.Lock()
			inbox[dep.task.name] = out
			inboxMu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, time.Since(start), err
	}
	return inbox, time.Since(start), nil
}

func (t *Task) identityState(id string) *identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.identities[id]
	if !ok {
		state = &identity{}
		t.identities[id] = state
	}
	return state
}

// defaultBody logs the dispatch inputs and succeeds.
func (t *Task) defaultBody(ctx context.Context, inbox Inbox, outbox Outbox, substitutions map[string]string) error {
	t.log.Info(ctx, "task run",
		zap.Int("inbox", len(inbox)),
		zap.Int("outbox", len(outbox)),
		zap.Any("substitutions", substitutions),
	)
	return nil
}

func cloneStrings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
