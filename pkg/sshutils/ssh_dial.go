package sshutils

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/crypto/ssh"
)

var SSHDialerFunc = NewSSHDial

// SSHDialer establishes a session binding to addr.
type SSHDialer interface {
	DialContext(ctx context.Context, network, addr string, config *ssh.ClientConfig) (SSHClienter, error)
}

// SSHDial dials directly, or through ProxyJump ("[user@]host[:port]") when set.
type SSHDial struct {
	Timeout   time.Duration
	ProxyJump string
}

func NewSSHDial(timeout time.Duration, proxyJump string) SSHDialer {
	return &SSHDial{Timeout: timeout, ProxyJump: proxyJump}
}

func (d *SSHDial) DialContext(
	ctx context.Context,
	network, addr string,
	config *ssh.ClientConfig,
) (SSHClienter, error) {
	if d.ProxyJump == "" {
		client, err := d.dialDirect(ctx, network, addr, config)
		if err != nil {
			return nil, err
		}
		return &SSHClientWrapper{Client: client}, nil
	}

	jumpUser, jumpHost, jumpPort, err := ParseHostSpec(d.ProxyJump)
	if err != nil {
		return nil, err
	}
	jumpConfig := *config
	if jumpUser != "" {
		jumpConfig.User = jumpUser
	}
	if jumpPort == 0 {
		jumpPort = DefaultSSHPort
	}
	jumpAddr := net.JoinHostPort(jumpHost, strconv.Itoa(jumpPort))

	jump, err := d.dialDirect(ctx, network, jumpAddr, &jumpConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to dial jump host %s: %w", jumpAddr, err)
	}

	conn, err := jump.DialContext(ctx, network, addr)
	if err != nil {
		return nil, multierr.Append(
			fmt.Errorf("failed to reach %s via %s: %w", addr, jumpAddr, err),
			jump.Close(),
		)
	}
	client, err := d.handshake(ctx, conn, addr, config)
	if err != nil {
		return nil, multierr.Append(err, jump.Close())
	}
	return &SSHClientWrapper{Client: client, Jumps: []*ssh.Client{jump}}, nil
}

func (d *SSHDial) dialDirect(
	ctx context.Context,
	network, addr string,
	config *ssh.ClientConfig,
) (*ssh.Client, error) {
	dialer := &net.Dialer{Timeout: d.timeout(config)}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return d.handshake(ctx, conn, addr, config)
}

// handshake runs the SSH handshake on conn, bounded by the dial timeout and
// ctx. Tunnelled conns do not support deadlines, so the bound is enforced by
// closing conn.
func (d *SSHDial) handshake(
	ctx context.Context,
	conn net.Conn,
	addr string,
	config *ssh.ClientConfig,
) (*ssh.Client, error) {
	timeout := d.timeout(config)
	var expired atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		expired.Store(true)
		_ = conn.Close()
	})
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	timerStopped := timer.Stop()
	ctxStopped := stop()

	if err == nil && timerStopped && ctxStopped {
		return ssh.NewClient(c, chans, reqs), nil
	}
	if err == nil {
		c.Close()
	}
	conn.Close()
	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case expired.Load():
		return nil, fmt.Errorf("ssh handshake with %s timed out after %v", addr, timeout)
	default:
		return nil, err
	}
}

func (d *SSHDial) timeout(config *ssh.ClientConfig) time.Duration {
	switch {
	case d.Timeout > 0:
		return d.Timeout
	case config.Timeout > 0:
		return config.Timeout
	default:
		return SSHDialTimeout
	}
}
