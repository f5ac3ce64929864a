package sshutils

import "time"

var (
	SSHDialTimeout          = 10 * time.Second
	SSHRetryAttempts        = 3
	SSHRetryInitialInterval = 500 * time.Millisecond
	SSHRetryMaxInterval     = 5 * time.Second
	ChannelCloseGrace       = 10 * time.Second
	KeepAliveTimeout        = 5 * time.Second
)

const (
	DefaultSSHPort    = 22
	SFTPPolicyShared  = "shared"
	SFTPPolicyPerCall = "per-call"
	defaultKnownHosts = "~/.ssh/known_hosts"
	keepAliveRequest  = "keepalive@openssh.com"

	// ExitStatusUnknown is reported when the remote side closed a command
	// channel without sending an exit status.
	ExitStatusUnknown = -1
)
