package kinds

import (
	"context"
	"fmt"
	"sort"

	"dario.cat/mergo"

	"github.com/fyrsmithlabs/taskmill/internal/logging"
	"github.com/fyrsmithlabs/taskmill/internal/task"
)

// NewMerge constructs a task that melds every dependency outbox, plus any
// configured values, into its own outbox. Inboxes are merged in dependency
// name order so the result is deterministic; later sources override earlier
// ones, and configured values override everything.
func NewMerge(name string, values map[string]any, log *logging.Logger, opts ...task.Option) (*task.Task, error) {
	if log == nil {
		log = logging.NewNop()
	}

	body := func(ctx context.Context, inbox task.Inbox, outbox task.Outbox, _ map[string]string) error {
		names := make([]string, 0, len(inbox))
		for dep := range inbox {
			names = append(names, dep)
		}
		sort.Strings(names)

		merged := make(map[string]any)
		for _, dep := range names {
			if err := mergo.Merge(&merged, map[string]any(inbox[dep]), mergo.WithOverride); err != nil {
				return fmt.Errorf("merging outbox of %q: %w", dep, err)
			}
		}
		if err := mergo.Merge(&merged, values, mergo.WithOverride); err != nil {
			return fmt.Errorf("merging configured values: %w", err)
		}

		for k, v := range merged {
			outbox[k] = v
		}
		return nil
	}

	opts = append([]task.Option{task.WithBody(body), task.WithLogger(log)}, opts...)
	return task.New(name, opts...)
}
