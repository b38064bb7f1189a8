package kfctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockExecCommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", name}
	cs = append(cs, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
	return cmd
}

// TestHelperProcess is a helper process for mocking exec.Command
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) > 1 && args[1] == "delete" {
		fmt.Fprintln(os.Stderr, "Error: cluster name doesn't match")
		os.Exit(1)
	}
	wd, _ := os.Getwd()
	fmt.Printf("ran %v in %s\n", args, wd)
	os.Exit(0)
}

func TestExecRunner(t *testing.T) {
	orig := execCommandContext
	execCommandContext = mockExecCommandContext
	t.Cleanup(func() { execCommandContext = orig })

	dir := t.TempDir()
	var stream bytes.Buffer
	r := &ExecRunner{Stream: &stream}

	out, err := r.Run(context.Background(), dir, "kfctl", "apply", "-V")
	require.NoError(t, err)
	assert.Contains(t, out, "ran [kfctl apply -V]")
	assert.Contains(t, out, dir)
	assert.Equal(t, out, stream.String())

	out, err = r.Run(context.Background(), dir, "kfctl", "delete")
	require.Error(t, err)
	assert.Contains(t, out, "cluster name doesn't match")
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "kfctl delete", cmdErr.Command)
	assert.Equal(t, out, cmdErr.Output)
}
