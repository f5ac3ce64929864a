package sftprunner

import (
	"context"
	"sync"

	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/bacalhau-project/remotefs/pkg/sshutils"
	"github.com/pkg/sftp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// SSHSftpRunner runs units of work on SFTP channels of its own connection.
type SSHSftpRunner struct {
	config     sshutils.SSHConfiger
	client     sshutils.SSHClienter
	clientOpts []sftp.ClientOption
	policy     channelPolicy
	logger     *logger.Logger

	mu     sync.RWMutex
	closed bool
}

var _ SftpRunner = (*SSHSftpRunner)(nil)

// NewSftpRunner connects to config and prepares channels according to
// opts.SFTPPolicy. Channels are opened lazily.
func NewSftpRunner(
	ctx context.Context,
	config sshutils.SSHConfiger,
	opts sshutils.Options,
) (*SSHSftpRunner, error) {
	client, err := config.Connect(ctx)
	if err != nil {
		return nil, sshutils.NewOpError("connect", config.String(), sshutils.ErrConnection, err)
	}

	r := &SSHSftpRunner{
		config:     config,
		client:     client,
		clientOpts: sshutils.SFTPClientOptions(opts),
		logger:     logger.Get().With(zap.String("target", config.String())),
	}
	switch opts.SFTPPolicy {
	case sshutils.SFTPPolicyPerCall:
		r.policy = &perCallChannel{open: r.openChannel, logger: r.logger}
	default:
		r.policy = &sharedChannel{open: r.openChannel, logger: r.logger}
	}
	return r, nil
}

func (r *SSHSftpRunner) Execute(ctx context.Context, work Sftp) error {
	if r.isClosed() {
		return sshutils.ClosedError("sftp", r.config.String())
	}
	if err := ctx.Err(); err != nil {
		return sshutils.NewOpError("sftp", r.config.String(), sshutils.ErrExecution, err)
	}
	return r.policy.run(ctx, work)
}

// Close closes the held channel and the connection. Only the first call
// does any work.
func (r *SSHSftpRunner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.logger.Debug("Closing sftp runner")
	err := multierr.Combine(r.policy.close(), r.client.Close())
	if err != nil {
		return sshutils.NewOpError("close", r.config.String(), sshutils.ErrConnection, err)
	}
	return nil
}

func (r *SSHSftpRunner) String() string {
	return r.config.String()
}

func (r *SSHSftpRunner) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *SSHSftpRunner) openChannel() (*sftp.Client, error) {
	if r.isClosed() {
		return nil, sshutils.ClosedError("open sftp channel", r.config.String())
	}
	client, err := r.client.NewSFTPClient(r.clientOpts...)
	if err != nil {
		r.logger.Warnf("Failed to open sftp channel: %v", err)
		return nil, sshutils.NewOpError("open sftp channel", r.config.String(), sshutils.ErrExecution, err)
	}
	r.logger.Debug("Opened sftp channel")
	return client, nil
}
