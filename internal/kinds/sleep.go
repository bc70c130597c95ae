package kinds

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmill/internal/logging"
	"github.com/fyrsmithlabs/taskmill/internal/task"
)

// SleepDuration is the outbox key recording how long a sleep task slept.
const SleepDuration = "duration"

// NewSleep constructs a task that delays for a fixed duration. The delay is
// context-aware: cancelling the dispatch releases the sleeper immediately.
func NewSleep(name string, duration time.Duration, log *logging.Logger, opts ...task.Option) (*task.Task, error) {
	if duration < 0 {
		return nil, fmt.Errorf("kinds: sleep task %q duration cannot be negative", name)
	}
	if log == nil {
		log = logging.NewNop()
	}

	body := func(ctx context.Context, _ task.Inbox, outbox task.Outbox, _ map[string]string) error {
		log.Debug(ctx, "sleeping", zap.Duration("duration", duration))

		timer := time.NewTimer(duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		outbox[SleepDuration] = duration.String()
		return nil
	}

	opts = append([]task.Option{task.WithBody(body), task.WithLogger(log)}, opts...)
	return task.New(name, opts...)
}
