package config

import (
	"fmt"

	"github.com/fyrsmithlabs/taskmill/internal/kinds"
	"github.com/fyrsmithlabs/taskmill/internal/logging"
	"github.com/fyrsmithlabs/taskmill/internal/task"
)

// Build materializes a task manager from a validated manifest. Every declared
// task is constructed by kind and registered with its dependencies and target
// override; the manager wires edges at finalize time, so declaration order in
// the manifest does not matter.
func Build(cfg *Config, log *logging.Logger, opts ...task.ManagerOption) (*task.Manager, error) {
	if log == nil {
		log = logging.NewNop()
	}

	opts = append([]task.ManagerOption{task.WithManagerLogger(log)}, opts...)
	manager := task.NewManager(opts...)

	for _, tc := range cfg.Tasks {
		t, err := buildTask(&tc, log)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", tc.Name, err)
		}
		if err := manager.Register(t, tc.Dependencies, tc.Target); err != nil {
			return nil, fmt.Errorf("task %q: %w", tc.Name, err)
		}
	}

	if err := manager.Finalize(); err != nil {
		return nil, err
	}
	return manager, nil
}

func buildTask(tc *TaskConfig, log *logging.Logger) (*task.Task, error) {
	switch tc.Kind {
	case KindExec:
		return kinds.NewExec(tc.Name, tc.Command, tc.Args, log)
	case KindSleep:
		return kinds.NewSleep(tc.Name, tc.Duration.Duration(), log)
	case KindMerge:
		return kinds.NewMerge(tc.Name, tc.Values, log)
	case KindGroup:
		return task.New(tc.Name, task.WithLogger(log))
	default:
		return nil, fmt.Errorf("unknown kind %q", tc.Kind)
	}
}
