package kfctl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"kfctl-e2e/pkg/logging"
)

const kfctlSubsystem = "Kfctl"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Runner runs a command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (string, error)
}

// CommandError is returned when a command exits unsuccessfully.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands as child processes. Output is captured and, when
// Stream is set, copied to it as it is produced.
type ExecRunner struct {
	Env    []string
	Stream io.Writer
}

// NewExecRunner creates a runner streaming to stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stream: os.Stderr}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	command := strings.Join(append([]string{name}, args...), " ")
	logging.Info(kfctlSubsystem, "Running: %s (in %s)", command, dir)

	cmd := execCommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	var out bytes.Buffer
	var w io.Writer = &out
	if r.Stream != nil {
		w = io.MultiWriter(&out, r.Stream)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	if err := cmd.Run(); err != nil {
		return out.String(), &CommandError{Command: command, Output: out.String(), Err: err}
	}
	return out.String(), nil
}
