package task

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/taskmill/internal/logging"
	"github.com/fyrsmithlabs/taskmill/internal/target"
)

// edge identifies one wired (task, dependency) pair.
type edge struct {
	task string
	dep  string
}

// Manager owns the task registry and the shared target resolver, wires
// declared dependency names into live edges, and drives concurrent execution
// of requested target tokens.
type Manager struct {
	log   *logging.Logger
	hooks Hooks

	mu        sync.Mutex
	tasks     map[string]*Task
	declared  map[string]map[string]struct{}
	wired     map[edge]struct{}
	finalized bool
	resolver  *target.Resolver
}

// ManagerOption configures manager construction.
type ManagerOption func(*Manager)

// WithManagerLogger injects the manager's logger.
func WithManagerLogger(log *logging.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithManagerHooks attaches lifecycle hooks applied to every registered task.
func WithManagerHooks(hooks Hooks) ManagerOption {
	return func(m *Manager) { m.hooks = m.hooks.Merge(hooks) }
}

// NewManager constructs an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		tasks:    make(map[string]*Task),
		declared: make(map[string]map[string]struct{}),
		wired:    make(map[edge]struct{}),
		resolver: target.NewResolver(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logging.NewNop()
	}
	return m
}

// Register stores a task, records its declared dependency names, and
// registers its target template (or the override) with the shared resolver.
// Dependencies may name tasks that are not registered yet; they are checked
// at finalize time. Template errors are fatal here, never deferred into
// Execute.
func (m *Manager) Register(t *Task, dependencies []string, targetOverride string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	template := targetOverride
	if template == "" {
		template = t.Name()
	}
	if err := m.resolver.Register(template, t); err != nil {
		return err
	}

	t.hooks = t.hooks.Merge(m.hooks)
	m.tasks[t.Name()] = t

	declared, ok := m.declared[t.Name()]
	if !ok {
		declared = make(map[string]struct{})
		m.declared[t.Name()] = declared
	}
	for _, dep := range dependencies {
		declared[dep] = struct{}{}
	}

	// New registrations may introduce new edges; finalize again before the
	// next execution.
	m.finalized = false
	return nil
}

// RegisterDependency declares additional dependencies for an already
// registered task.
func (m *Manager) RegisterDependency(name string, dependencies []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[name]; !ok {
		return &NoSuchTaskError{Task: name}
	}
	for _, dep := range dependencies {
		m.declared[name][dep] = struct{}{}
	}
	m.finalized = false
	return nil
}

// Task returns a registered task by name.
func (m *Manager) Task(name string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[name]
	return t, ok
}

// Names returns every registered task name, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tasks))
	for name := range m.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Templates returns every registered target template.
func (m *Manager) Templates() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	templates := m.resolver.Templates()
	sort.Strings(templates)
	return templates
}

// Finalize converts declared dependency names into live edges. It is
// idempotent: already-wired (task, dependency) pairs are tracked explicitly,
// so calling it again after late registrations wires only the new edges and
// never duplicates existing ones. Unknown dependency names and dependency
// cycles are fatal here.
func (m *Manager) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalizeLocked()
}

func (m *Manager) finalizeLocked() error {
	if m.finalized {
		return nil
	}

	if err := m.checkCycles(); err != nil {
		return err
	}

	for name, deps := range m.declared {
		t := m.tasks[name]
		for dep := range deps {
			e := edge{task: name, dep: dep}
			if _, done := m.wired[e]; done {
				continue
			}
			depTask, ok := m.tasks[dep]
			if !ok {
				return &NoSuchTaskError{Task: name, Dependency: dep}
			}
			t.DependOn(depTask, nil)
			m.wired[e] = struct{}{}
		}
	}

	m.finalized = true
	return nil
}

// checkCycles rejects cyclic declarations before any edge is wired; a cycle
// would deadlock dispatch on its own identity.
func (m *Manager) checkCycles() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(m.declared))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return &CycleError{Path: append(path, name)}
		}
		state[name] = visiting
		for dep := range m.declared[name] {
			if _, ok := m.tasks[dep]; !ok {
				// Reported by finalizeLocked as NoSuchTaskError.
				continue
			}
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for name := range m.declared {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

// Execute resolves every token against the registry and dispatches all
// resolved (task, substitutions) pairs concurrently, awaiting the whole
// batch. The first failure cancels the batch. Tokens matching no registered
// target are returned rather than raised so callers can apply their own
// policy; an ambiguous token is always fatal.
func (m *Manager) Execute(ctx context.Context, tokens []string) ([]string, error) {
	return m.execute(ctx, tokens, false)
}

// ExecuteDryRun resolves and warms the dependency graph for the requested
// tokens without running any task body; nothing is marked resolved.
func (m *Manager) ExecuteDryRun(ctx context.Context, tokens []string) ([]string, error) {
	return m.execute(ctx, tokens, true)
}

func (m *Manager) execute(ctx context.Context, tokens []string, initOnly bool) ([]string, error) {
	m.mu.Lock()
	if err := m.finalizeLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	resolutions, err := m.resolver.EvaluateAll(tokens, false)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	ctx = logging.WithBatchID(ctx, uuid.NewString())

	var unmatched []string
	seen := make(map[string]struct{})
	group, groupCtx := errgroup.WithContext(ctx)
	for _, res := range resolutions {
		if !res.Match.Matched {
			if _, dup := seen[res.Token]; !dup {
				seen[res.Token] = struct{}{}
				unmatched = append(unmatched, res.Token)
			}
			continue
		}
		t := res.Handle.(*Task)
		subs := res.Match.Substitutions
		group.Go(func() error {
			_, err := t.dispatch(groupCtx, subs, initOnly)
			return err
		})
	}

	if err := group.Wait(); err != nil {
		return unmatched, err
	}

	m.log.Info(ctx, "batch complete",
		zap.Int("requested", len(tokens)),
		zap.Int("unmatched", len(unmatched)),
		zap.Bool("dry_run", initOnly),
	)
	return unmatched, nil
}
