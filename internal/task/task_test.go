package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/taskmill/internal/target"
)

// countingBody returns a body that counts executions.
func countingBody(counter *atomic.Int64) Body {
	return func(context.Context, Inbox, Outbox, map[string]string) error {
		counter.Add(1)
		return nil
	}
}

func TestNewInvalidTemplate(t *testing.T) {
	_, err := New("broken-{")
	var syntaxErr *target.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)

	_, err = New("")
	require.Error(t, err)
}

func TestLiteralAtMostOnce(t *testing.T) {
	var count atomic.Int64
	tk := MustNew("build", WithBody(countingBody(&count)))

	ctx := context.Background()
	_, err := tk.Dispatch(ctx, nil)
	require.NoError(t, err)
	_, err = tk.Dispatch(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1), count.Load())
	assert.Equal(t, int64(1), tk.Invocations())
	assert.Equal(t, int64(2), tk.Dispatches())
	assert.True(t, tk.Resolved("build"))
}

func TestDynamicIdentitiesIndependent(t *testing.T) {
	var count atomic.Int64
	tk := MustNew("a:{x}", WithBody(countingBody(&count)))
	require.True(t, tk.Dynamic())

	ctx := context.Background()
	for _, x := range []string{"1", "2", "1"} {
		_, err := tk.Dispatch(ctx, map[string]string{"x": x})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(2), count.Load())
	assert.True(t, tk.Resolved("a:1"))
	assert.True(t, tk.Resolved("a:2"))
	assert.False(t, tk.Resolved("a:3"))

	_, err := tk.Dispatch(ctx, map[string]string{"x": "3"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count.Load())
	assert.ElementsMatch(t, []string{"a:1", "a:2", "a:3"}, tk.ResolvedIdentities())
}

func TestDispatchMissingSubstitution(t *testing.T) {
	tk := MustNew("a:{x}")

	_, err := tk.Dispatch(context.Background(), nil)
	var unresolved *target.UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "x", unresolved.Key)
}

func TestConcurrentSameIdentity(t *testing.T) {
	var count atomic.Int64
	tk := MustNew("build", WithBody(countingBody(&count)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tk.Dispatch(context.Background(), nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), count.Load())
}

func TestDependenciesJoinBeforeBody(t *testing.T) {
	var depDone atomic.Bool
	dep := MustNew("dep", WithBody(func(context.Context, Inbox, Outbox, map[string]string) error {
		depDone.Store(true)
		return nil
	}))

	var sawDepDone atomic.Bool
	parent := MustNew("parent", WithBody(func(_ context.Context, inbox Inbox, _ Outbox, _ map[string]string) error {
		sawDepDone.Store(depDone.Load())
		_, ok := inbox["dep"]
		assert.True(t, ok)
		return nil
	}))
	parent.DependOn(dep, nil)

	_, err := parent.Dispatch(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, sawDepDone.Load())
}

func TestInboxCarriesOutboxSnapshot(t *testing.T) {
	dep := MustNew("producer", WithBody(func(_ context.Context, _ Inbox, outbox Outbox, _ map[string]string) error {
		outbox["value"] = 42
		return nil
	}))

	var got any
	parent := MustNew("consumer", WithBody(func(_ context.Context, inbox Inbox, _ Outbox, _ map[string]string) error {
		got = inbox["producer"]["value"]
		return nil
	}))
	parent.DependOn(dep, nil)

	_, err := parent.Dispatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestPublishedOutboxIsFrozen(t *testing.T) {
	var retained Outbox
	tk := MustNew("producer", WithBody(func(_ context.Context, _ Inbox, outbox Outbox, _ map[string]string) error {
		outbox["value"] = "original"
		retained = outbox
		return nil
	}))

	published, err := tk.Dispatch(context.Background(), nil)
	require.NoError(t, err)

	// Mutating the body's own map after the fact must not reach the
	// published snapshot.
	retained["value"] = "tampered"
	assert.Equal(t, "original", published["value"])
}

func TestSnapshotNotOverwrittenByLaterIdentity(t *testing.T) {
	dep := MustNew("v:{x}", WithBody(func(_ context.Context, _ Inbox, outbox Outbox, subs map[string]string) error {
		outbox["x"] = subs["x"]
		return nil
	}))

	ctx := context.Background()
	first, err := dep.Dispatch(ctx, map[string]string{"x": "1"})
	require.NoError(t, err)

	_, err = dep.Dispatch(ctx, map[string]string{"x": "2"})
	require.NoError(t, err)

	assert.Equal(t, "1", first["x"])
}

func TestBoundArgumentsMergeUnderCaller(t *testing.T) {
	var seen map[string]string
	dep := MustNew("cfg:{mode}:{level}", WithBody(func(_ context.Context, _ Inbox, _ Outbox, subs map[string]string) error {
		seen = subs
		return nil
	}))

	parent := MustNew("parent")
	parent.DependOn(dep, map[string]string{"mode": "fast", "level": "1"})

	// Caller substitutions override bound defaults.
	_, err := parent.Dispatch(context.Background(), map[string]string{"level": "9"})
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, "fast", seen["mode"])
	assert.Equal(t, "9", seen["level"])
	assert.True(t, dep.Resolved("cfg:fast:9"))
}

func TestFailureIdentifiesTaskAndIdentity(t *testing.T) {
	boom := errors.New("boom")
	tk := MustNew("deploy:{env}", WithBody(func(context.Context, Inbox, Outbox, map[string]string) error {
		return boom
	}))

	_, err := tk.Dispatch(context.Background(), map[string]string{"env": "prod"})
	require.Error(t, err)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "deploy:{env}", failed.Task)
	assert.Equal(t, "deploy:prod", failed.Identity)
	assert.ErrorIs(t, err, boom)

	// A failed identity is not resolved and re-dispatch retries the body.
	assert.False(t, tk.Resolved("deploy:prod"))
	_, err = tk.Dispatch(context.Background(), map[string]string{"env": "prod"})
	require.Error(t, err)
}

func TestDependencyFailureSkipsBody(t *testing.T) {
	dep := MustNew("bad", WithBody(func(context.Context, Inbox, Outbox, map[string]string) error {
		return errors.New("boom")
	}))

	var count atomic.Int64
	parent := MustNew("parent", WithBody(countingBody(&count)))
	parent.DependOn(dep, nil)

	_, err := parent.Dispatch(context.Background(), nil)
	require.Error(t, err)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "bad", failed.Task)

	assert.Equal(t, int64(0), count.Load())
	assert.False(t, parent.Resolved("parent"))
}

func TestDryRunRunsNothing(t *testing.T) {
	var depCount, parentCount atomic.Int64
	dep := MustNew("dep", WithBody(countingBody(&depCount)))
	parent := MustNew("parent", WithBody(countingBody(&parentCount)))
	parent.DependOn(dep, nil)

	require.NoError(t, parent.DryRun(context.Background(), nil))

	assert.Equal(t, int64(0), depCount.Load())
	assert.Equal(t, int64(0), parentCount.Load())
	assert.False(t, dep.Resolved("dep"))
	assert.False(t, parent.Resolved("parent"))

	// A real dispatch afterward still runs everything.
	_, err := parent.Dispatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depCount.Load())
	assert.Equal(t, int64(1), parentCount.Load())
}

func TestCancelledContext(t *testing.T) {
	var count atomic.Int64
	tk := MustNew("build", WithBody(countingBody(&count)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tk.Dispatch(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), count.Load())
	assert.False(t, tk.Resolved("build"))
}

func TestHooks(t *testing.T) {
	var events []string
	var mu sync.Mutex
	record := func(kind string) HookFunc {
		return func(event Event) {
			mu.Lock()
			events = append(events, kind+":"+event.Identity)
			mu.Unlock()
		}
	}

	tk := MustNew("job:{n}", WithHooks(Hooks{
		OnStart:   record("start"),
		OnSuccess: record("success"),
		OnFailure: record("failure"),
	}))

	_, err := tk.Dispatch(context.Background(), map[string]string{"n": "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"start:job:1", "success:job:1"}, events)

	stats, ok := tk.IdentityStats("job:1")
	require.True(t, ok)
	assert.True(t, stats.Resolved)
}
