package task

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/taskmill/internal/target"
)

func register(t *testing.T, m *Manager, tk *Task, deps ...string) {
	t.Helper()
	require.NoError(t, m.Register(tk, deps, ""))
}

func TestManagerBasic(t *testing.T) {
	m := NewManager()
	register(t, m, MustNew("a"))
	register(t, m, MustNew("b"))
	register(t, m, MustNew("c"))

	var count atomic.Int64
	test := MustNew("test", WithBody(countingBody(&count)))
	register(t, m, test, "a", "b", "c")

	ctx := context.Background()
	unmatched, err := m.Execute(ctx, []string{"test"})
	require.NoError(t, err)
	assert.Empty(t, unmatched)
	assert.Equal(t, int64(1), count.Load())

	// A literal, already-resolved identity makes the second batch a no-op.
	_, err = m.Execute(ctx, []string{"test"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Load())
}

func TestManagerDiamondRunsSharedDependencyOnce(t *testing.T) {
	m := NewManager()

	var aCount atomic.Int64
	register(t, m, MustNew("a", WithBody(countingBody(&aCount))))
	register(t, m, MustNew("b"), "a")
	register(t, m, MustNew("c"), "a")
	register(t, m, MustNew("d"), "b", "c")

	_, err := m.Execute(context.Background(), []string{"d"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), aCount.Load())

	d, _ := m.Task("d")
	assert.True(t, d.Resolved("d"))
}

func TestManagerDynamicTargets(t *testing.T) {
	m := NewManager()

	var count atomic.Int64
	register(t, m, MustNew("a:{x}", WithBody(countingBody(&count))))

	ctx := context.Background()
	unmatched, err := m.Execute(ctx, []string{"a:1", "a:2"})
	require.NoError(t, err)
	assert.Empty(t, unmatched)
	assert.Equal(t, int64(2), count.Load())

	// Replaying a resolved identity is a no-op; a fresh binding still runs.
	_, err = m.Execute(ctx, []string{"a:1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count.Load())

	_, err = m.Execute(ctx, []string{"a:3"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count.Load())
}

func TestManagerUnmatchedTokensReturned(t *testing.T) {
	m := NewManager()
	register(t, m, MustNew("known"))

	unmatched, err := m.Execute(context.Background(), []string{"known", "alien:1", "alien:1", "other"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alien:1", "other"}, unmatched)
}

func TestManagerAmbiguousTokenFatal(t *testing.T) {
	m := NewManager()
	register(t, m, MustNew("a:{x}"))
	register(t, m, MustNew("{y}:1"))

	_, err := m.Execute(context.Background(), []string{"a:1"})
	var ambiguous *target.AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.ElementsMatch(t, []string{"a:{x}", "{y}:1"}, ambiguous.Templates)
}

func TestManagerTargetOverride(t *testing.T) {
	m := NewManager()

	var count atomic.Int64
	tk := MustNew("build", WithBody(countingBody(&count)))
	require.NoError(t, m.Register(tk, nil, "compile"))

	unmatched, err := m.Execute(context.Background(), []string{"compile"})
	require.NoError(t, err)
	assert.Empty(t, unmatched)
	assert.Equal(t, int64(1), count.Load())

	// The task's own name was not registered as a target.
	unmatched, err = m.Execute(context.Background(), []string{"build"})
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, unmatched)
}

func TestManagerInvalidTemplateFatalAtRegister(t *testing.T) {
	m := NewManager()
	tk := MustNew("fine")

	err := m.Register(tk, nil, "broken-{")
	var syntaxErr *target.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}

func TestFinalizeIdempotent(t *testing.T) {
	m := NewManager()
	register(t, m, MustNew("a"))
	test := MustNew("test")
	register(t, m, test, "a")

	require.NoError(t, m.Finalize())
	require.NoError(t, m.Finalize())

	// Re-registration resets the finalized flag; finalizing again must not
	// duplicate the already-wired edge.
	register(t, m, MustNew("b"))
	require.NoError(t, m.RegisterDependency("test", []string{"b"}))
	require.NoError(t, m.Finalize())

	assert.ElementsMatch(t, []string{"a", "b"}, test.Dependencies())
}

func TestFinalizeUnknownDependency(t *testing.T) {
	m := NewManager()
	register(t, m, MustNew("test"), "ghost")

	err := m.Finalize()
	var noSuch *NoSuchTaskError
	require.ErrorAs(t, err, &noSuch)
	assert.Equal(t, "test", noSuch.Task)
	assert.Equal(t, "ghost", noSuch.Dependency)

	// Execute never runs with a broken graph.
	_, err = m.Execute(context.Background(), []string{"test"})
	require.ErrorAs(t, err, &noSuch)
}

func TestFinalizeCycle(t *testing.T) {
	m := NewManager()
	register(t, m, MustNew("a"), "b")
	register(t, m, MustNew("b"), "c")
	register(t, m, MustNew("c"), "a")

	err := m.Finalize()
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.NotEmpty(t, cycle.Path)
}

func TestRegisterDependencyUnknownTask(t *testing.T) {
	m := NewManager()
	err := m.RegisterDependency("ghost", []string{"a"})

	var noSuch *NoSuchTaskError
	require.ErrorAs(t, err, &noSuch)
	assert.Equal(t, "ghost", noSuch.Task)
}

func TestManagerFailFast(t *testing.T) {
	m := NewManager()

	boom := errors.New("boom")
	register(t, m, MustNew("bad", WithBody(func(context.Context, Inbox, Outbox, map[string]string) error {
		return boom
	})))

	// blocked waits for cancellation; it must be released by the batch
	// failing fast rather than hanging.
	register(t, m, MustNew("blocked", WithBody(func(ctx context.Context, _ Inbox, _ Outbox, _ map[string]string) error {
		<-ctx.Done()
		return ctx.Err()
	})))

	var downstream atomic.Int64
	register(t, m, MustNew("after-bad", WithBody(countingBody(&downstream))), "bad")

	_, err := m.Execute(context.Background(), []string{"after-bad", "blocked"})
	require.Error(t, err)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "bad", failed.Task)
	assert.ErrorIs(t, err, boom)

	// Nothing reachable only through the failure path resolved.
	assert.Equal(t, int64(0), downstream.Load())
	afterBad, _ := m.Task("after-bad")
	assert.False(t, afterBad.Resolved("after-bad"))
}

func TestManagerDryRun(t *testing.T) {
	m := NewManager()

	var count atomic.Int64
	register(t, m, MustNew("a", WithBody(countingBody(&count))))
	register(t, m, MustNew("test"), "a")

	unmatched, err := m.ExecuteDryRun(context.Background(), []string{"test", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, unmatched)
	assert.Equal(t, int64(0), count.Load())

	a, _ := m.Task("a")
	assert.False(t, a.Resolved("a"))
}

func TestManagerHooksAppliedToTasks(t *testing.T) {
	var successes atomic.Int64
	m := NewManager(WithManagerHooks(Hooks{
		OnSuccess: func(Event) { successes.Add(1) },
	}))

	register(t, m, MustNew("a"))
	register(t, m, MustNew("b"), "a")

	_, err := m.Execute(context.Background(), []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), successes.Load())
}

func TestManagerNamesAndTemplates(t *testing.T) {
	m := NewManager()
	register(t, m, MustNew("b"))
	register(t, m, MustNew("a:{x}"))

	assert.Equal(t, []string{"a:{x}", "b"}, m.Names())
	assert.Equal(t, []string{"a:{x}", "b"}, m.Templates())
}
