package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/bacalhau-project/remotefs/pkg/sshutils"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// SSHCommandRunner is the CommandRunner backed by an SSH connection.
type SSHCommandRunner struct {
	config     sshutils.SSHConfiger
	closeGrace time.Duration
	logger     *logger.Logger

	mu     sync.RWMutex
	client sshutils.SSHClienter
	closed bool
}

var _ CommandRunner = (*SSHCommandRunner)(nil)

// NewCommandRunner connects a new session binding from config. closeGrace
// bounds how long a ChannelExecWrapper waits for the exit status on Close;
// zero means sshutils.ChannelCloseGrace.
func NewCommandRunner(
	ctx context.Context,
	config sshutils.SSHConfiger,
	closeGrace time.Duration,
) (*SSHCommandRunner, error) {
	if closeGrace <= 0 {
		closeGrace = sshutils.ChannelCloseGrace
	}
	client, err := config.Connect(ctx)
	if err != nil {
		return nil, sshutils.NewOpError("connect", config.String(), sshutils.ErrConnection, err)
	}
	return &SSHCommandRunner{
		config:     config,
		closeGrace: closeGrace,
		logger:     logger.Get().With(zap.String("target", config.String())),
		client:     client,
	}, nil
}

func (r *SSHCommandRunner) Duplicate(ctx context.Context) (CommandRunner, error) {
	if r.isClosed() {
		return nil, sshutils.ClosedError("duplicate", r.config.String())
	}
	r.logger.Debug("Duplicating command runner")
	return NewCommandRunner(ctx, r.config, r.closeGrace)
}

func (r *SSHCommandRunner) Execute(ctx context.Context, command string) (*ExecuteResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, sshutils.NewOpError("execute", command, sshutils.ErrExecution, err)
	}
	session, err := r.openChannel("execute", command)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	session.SetStdout(&stdout)
	session.SetStderr(&stderr)

	if err := session.Start(command); err != nil {
		r.closeChannel(session)
		return nil, sshutils.NewOpError("execute", command, sshutils.ErrExecution, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		r.logger.Debugf("Context done, killing %q", command)
		_ = session.Signal(ssh.SIGKILL)
		r.closeChannel(session)
		<-done
		return nil, sshutils.NewOpError("execute", command, sshutils.ErrExecution, ctx.Err())
	}
	r.closeChannel(session)

	code, err := exitStatus(waitErr, r.client)
	if err != nil {
		r.logger.Warnf("Command %q failed: %v", command, err)
		return nil, sshutils.NewOpError("execute", command, sshutils.ErrExecution, err)
	}

	return &ExecuteResult{
		ExitCode: code,
		Stdout:   decodeOutput(stdout.Bytes()),
		Stderr:   decodeOutput(stderr.Bytes()),
	}, nil
}

func (r *SSHCommandRunner) Open(ctx context.Context, command string) (ChannelExecWrapper, error) {
	if err := ctx.Err(); err != nil {
		return nil, sshutils.NewOpError("open", command, sshutils.ErrExecution, err)
	}
	session, err := r.openChannel("open", command)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (ChannelExecWrapper, error) {
		r.closeChannel(session)
		return nil, sshutils.NewOpError("open", command, sshutils.ErrExecution, err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		return fail(err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return fail(err)
	}
	stderr, err := session.StderrPipe()
	if err != nil {
		return fail(err)
	}
	if err := session.Start(command); err != nil {
		return fail(err)
	}

	return &channelExecWrapper{
		session: session,
		client:  r.client,
		command: command,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		grace:   r.closeGrace,
		logger:  r.logger,
	}, nil
}

// Close releases the session binding. Only the first call does any work.
func (r *SSHCommandRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.logger.Debug("Closing command runner")
	if err := r.client.Close(); err != nil {
		return sshutils.NewOpError("close", r.config.String(), sshutils.ErrConnection, err)
	}
	return nil
}

func (r *SSHCommandRunner) String() string {
	return r.config.String()
}

func (r *SSHCommandRunner) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *SSHCommandRunner) openChannel(op, command string) (sshutils.SSHSessioner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, sshutils.ClosedError(op, command)
	}
	session, err := r.client.NewSession()
	if err != nil {
		r.logger.WarnWithFields("Failed to open channel", zap.String("command", command), zap.Error(err))
		return nil, sshutils.NewOpError(op, command, sshutils.ErrExecution, err)
	}
	r.logger.DebugWithFields("Opened channel", zap.String("command", command))
	return session, nil
}

func (r *SSHCommandRunner) closeChannel(session sshutils.SSHSessioner) {
	if err := session.Close(); err != nil && !errors.Is(err, io.EOF) {
		r.logger.Debugf("Error closing channel: %v", err)
	}
}

// exitStatus maps the result of Wait to an exit code. A channel that closed
// without an exit status reports ExitStatusUnknown while the connection is
// still alive. Losing the connection looks the same to Wait and is an error.
func exitStatus(err error, client sshutils.SSHClienter) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	var missingErr *ssh.ExitMissingError
	if errors.As(err, &missingErr) {
		if aliveErr := client.KeepAlive(); aliveErr != nil {
			return sshutils.ExitStatusUnknown, fmt.Errorf("connection lost before exit status: %w", aliveErr)
		}
		return sshutils.ExitStatusUnknown, nil
	}
	return sshutils.ExitStatusUnknown, err
}

func decodeOutput(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
