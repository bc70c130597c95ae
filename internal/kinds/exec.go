package kinds

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskmill/internal/logging"
	"github.com/fyrsmithlabs/taskmill/internal/target"
	"github.com/fyrsmithlabs/taskmill/internal/task"
)

// Exec outbox keys.
const (
	ExecExitCode = "exit_code"
	ExecStdout   = "stdout"
	ExecStderr   = "stderr"
	ExecCommand  = "command"
)

// NewExec constructs a task that runs a subprocess. Arguments are templates
// rendered against the dispatch substitutions, so a dynamic task like
// "build-{variant}" can pass "{variant}" through to its command line.
// Template errors in the arguments surface at construction.
func NewExec(name, program string, args []string, log *logging.Logger, opts ...task.Option) (*task.Task, error) {
	if program == "" {
		return nil, fmt.Errorf("kinds: exec task %q needs a program", name)
	}
	if log == nil {
		log = logging.NewNop()
	}

	templates := make([]*target.Target, len(args))
	for i, arg := range args {
		tmpl, err := target.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("kinds: exec task %q argument %d: %w", name, i, err)
		}
		templates[i] = tmpl
	}

	body := func(ctx context.Context, _ task.Inbox, outbox task.Outbox, subs map[string]string) error {
		argv := make([]string, len(templates))
		for i, tmpl := range templates {
			rendered, err := tmpl.Render(subs)
			if err != nil {
				return err
			}
			argv[i] = rendered
		}

		log.Info(ctx, "exec", zap.String("program", program), zap.Strings("args", argv))

		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, program, argv...)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()

		exitCode := 0
		if cmd.ProcessState != nil {
			exitCode = cmd.ProcessState.ExitCode()
		}
		outbox[ExecCommand] = program
		outbox[ExecExitCode] = exitCode
		outbox[ExecStdout] = stdout.String()
		outbox[ExecStderr] = stderr.String()

		if runErr != nil {
			return fmt.Errorf("%s exited %d: %w", program, exitCode, runErr)
		}
		log.Debug(ctx, "exec complete", zap.Int("exit_code", exitCode))
		return nil
	}

	opts = append([]task.Option{task.WithBody(body), task.WithLogger(log)}, opts...)
	return task.New(name, opts...)
}
