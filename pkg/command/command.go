// Package command runs commands on a remote host over SSH exec channels.
package command

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// CommandRunner executes commands over one session binding. Every call opens
// its own channel, so a runner may be shared by concurrent callers.
type CommandRunner interface {
	// Duplicate connects a new, independent runner to the same endpoint.
	Duplicate(ctx context.Context) (CommandRunner, error)
	// Execute runs command to completion and returns its buffered output.
	Execute(ctx context.Context, command string) (*ExecuteResult, error)
	// Open starts command and hands back its live streams.
	Open(ctx context.Context, command string) (ChannelExecWrapper, error)
	Close() error
}

// ExecuteResult is the outcome of a command that ran to completion.
type ExecuteResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r *ExecuteResult) Success() bool {
	return r.ExitCode == 0
}

// Output returns the trimmed stdout of a successful command, or an error
// carrying the exit code and stderr.
func (r *ExecuteResult) Output() (string, error) {
	output := strings.TrimSpace(r.Stdout)
	if r.ExitCode != 0 {
		errMsg := strings.TrimSpace(r.Stderr)
		if errMsg == "" {
			errMsg = output
		}
		return output, fmt.Errorf("command failed (exit %d): %s", r.ExitCode, errMsg)
	}
	return output, nil
}

// ChannelExecWrapper is a running command. The streams belong to the wrapper
// and must not be closed by the caller; Close releases them together with
// the channel and reports the exit code.
type ChannelExecWrapper interface {
	Stdin() io.Writer
	Stdout() io.Reader
	Stderr() io.Reader
	Close() (int, error)
}
