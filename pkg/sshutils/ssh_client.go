package sshutils

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/multierr"
	"golang.org/x/crypto/ssh"
)

// SSHClienter is one live, authenticated session binding. Channels are
// opened from it and it is closed once.
type SSHClienter interface {
	NewSession() (SSHSessioner, error)
	NewSFTPClient(opts ...sftp.ClientOption) (*sftp.Client, error)
	// KeepAlive round-trips a global request and fails once the
	// connection is gone.
	KeepAlive() error
	Close() error
}

// SSHClientWrapper adapts *ssh.Client to SSHClienter. Jumps holds the
// clients of any proxy hops; they are closed after Client.
type SSHClientWrapper struct {
	Client *ssh.Client
	Jumps  []*ssh.Client

	closeOnce sync.Once
	closeErr  error
}

func (w *SSHClientWrapper) NewSession() (SSHSessioner, error) {
	session, err := w.Client.NewSession()
	if err != nil {
		return nil, err
	}
	return &SSHSessionWrapper{Session: session}, nil
}

func (w *SSHClientWrapper) NewSFTPClient(opts ...sftp.ClientOption) (*sftp.Client, error) {
	return NewSFTPClientFunc(w.Client, opts...)
}

func (w *SSHClientWrapper) KeepAlive() error {
	done := make(chan error, 1)
	go func() {
		_, _, err := w.Client.SendRequest(keepAliveRequest, true, nil)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(KeepAliveTimeout):
		return fmt.Errorf("no keepalive reply after %v", KeepAliveTimeout)
	}
}

func (w *SSHClientWrapper) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.Client.Close()
		for i := len(w.Jumps) - 1; i >= 0; i-- {
			w.closeErr = multierr.Append(w.closeErr, w.Jumps[i].Close())
		}
	})
	return w.closeErr
}
