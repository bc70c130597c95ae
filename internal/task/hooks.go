package task

import "time"

// Event describes a dispatch lifecycle notification.
type Event struct {
	Task           string
	Identity       string
	Dynamic        bool
	DependencyTime time.Duration
	ExecuteTime    time.Duration
	Err            error
}

// HookFunc is invoked for lifecycle notifications. Hooks run synchronously on
// the dispatching goroutine and must be fast and non-blocking.
type HookFunc func(Event)

// Hooks aggregates optional lifecycle callbacks. The engine stays ignorant of
// what observers do with them; metrics and progress reporting attach here.
type Hooks struct {
	OnStart   HookFunc
	OnSuccess HookFunc
	OnFailure HookFunc
}

// Merge combines two hook sets, running the receiver first.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnStart:   chainHooks(h.OnStart, other.OnStart),
		OnSuccess: chainHooks(h.OnSuccess, other.OnSuccess),
		OnFailure: chainHooks(h.OnFailure, other.OnFailure),
	}
}

func chainHooks(first, second HookFunc) HookFunc {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(event Event) {
			first(event)
			second(event)
		}
	}
}

func (h Hooks) start(event Event) {
	if h.OnStart != nil {
		h.OnStart(event)
	}
}

func (h Hooks) success(event Event) {
	if h.OnSuccess != nil {
		h.OnSuccess(event)
	}
}

func (h Hooks) failure(event Event) {
	if h.OnFailure != nil {
		h.OnFailure(event)
	}
}
