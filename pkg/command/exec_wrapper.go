package command

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/bacalhau-project/remotefs/pkg/sshutils"
	"golang.org/x/crypto/ssh"
)

type channelExecWrapper struct {
	session sshutils.SSHSessioner
	client  sshutils.SSHClienter
	command string
	stdin   io.WriteCloser
	stdout  io.Reader
	stderr  io.Reader
	grace   time.Duration
	logger  *logger.Logger

	closeOnce sync.Once
	exitCode  int
	closeErr  error
}

func (w *channelExecWrapper) Stdin() io.Writer  { return w.stdin }
func (w *channelExecWrapper) Stdout() io.Reader { return w.stdout }
func (w *channelExecWrapper) Stderr() io.Reader { return w.stderr }

// Close ends the command and frees its channel. Stdin is closed, unread
// output is discarded and the exit status is awaited for at most the grace
// period, after which the remote process is killed and ExitStatusUnknown is
// returned. Later calls return the first result.
func (w *channelExecWrapper) Close() (int, error) {
	w.closeOnce.Do(w.close)
	return w.exitCode, w.closeErr
}

func (w *channelExecWrapper) close() {
	if err := w.stdin.Close(); err != nil && !errors.Is(err, io.EOF) {
		w.logger.Debugf("Error closing stdin of %q: %v", w.command, err)
	}
	go drain(w.stdout)
	go drain(w.stderr)

	done := make(chan error, 1)
	go func() {
		done <- w.session.Wait()
	}()

	timer := time.NewTimer(w.grace)
	defer timer.Stop()

	select {
	case err := <-done:
		code, err := exitStatus(err, w.client)
		w.exitCode = code
		if err != nil {
			w.closeErr = sshutils.NewOpError("close", w.command, sshutils.ErrExecution, err)
		}
	case <-timer.C:
		w.logger.Warnf("No exit status for %q after %v, killing it", w.command, w.grace)
		if err := w.session.Signal(ssh.SIGKILL); err != nil {
			w.logger.Debugf("Error signalling %q: %v", w.command, err)
		}
		w.exitCode = sshutils.ExitStatusUnknown
	}

	if err := w.session.Close(); err != nil && !errors.Is(err, io.EOF) {
		w.logger.Debugf("Error closing channel of %q: %v", w.command, err)
	}
	w.logger.Debugf("Closed channel for %q with exit code %d", w.command, w.exitCode)
}

func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}
