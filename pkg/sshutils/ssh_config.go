package sshutils

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/crypto/ssh"
)

// SSHConfiger produces session bindings. Every Connect yields an independent
// connection, which is how runners are duplicated.
type SSHConfiger interface {
	Connect(ctx context.Context) (SSHClienter, error)
	String() string
}

// SSHConfig holds the parameters of one SSH endpoint.
type SSHConfig struct {
	Host         string
	Port         int
	User         string
	Options      Options
	Dialer       SSHDialer
	Logger       *logger.Logger
	ClientConfig *ssh.ClientConfig
}

// NewSSHConfigFunc is the function used to create new SSH configurations
// This can be overridden for testing
var NewSSHConfigFunc = NewSSHConfig

// NewSSHConfig validates the endpoint and builds the client config from opts.
func NewSSHConfig(host string, port int, user string, opts Options) (*SSHConfig, error) {
	l := logger.Get()
	l.Debugf("Creating new SSH config for %s@%s:%d", user, host, port)

	config := &SSHConfig{
		Host:    host,
		Port:    port,
		User:    user,
		Options: opts,
		Logger:  l,
		Dialer:  SSHDialerFunc(opts.ConnectTimeout, opts.ProxyJump),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	auth, err := AuthMethods(opts)
	if err != nil {
		return nil, err
	}
	hostKeyCallback, err := HostKeyCallback(opts)
	if err != nil {
		return nil, err
	}
	config.ClientConfig = &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.ConnectTimeout,
	}

	return config, nil
}

func (c *SSHConfig) Validate() error {
	if c.Host == "" {
		return NewOpError("validate", c.String(), ErrInvalidArgument, fmt.Errorf("host cannot be empty"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		return NewOpError("validate", c.String(), ErrInvalidArgument,
			fmt.Errorf("invalid port number: %d", c.Port))
	}
	if c.User == "" {
		return NewOpError("validate", c.String(), ErrInvalidArgument, fmt.Errorf("user cannot be empty"))
	}
	return nil
}

func (c *SSHConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *SSHConfig) String() string {
	return fmt.Sprintf("%s@%s", c.User, c.Address())
}

// Connect dials and authenticates a new session binding. Network failures are
// retried with exponential backoff up to Options.ConnectRetries times;
// authentication and host key failures are not.
func (c *SSHConfig) Connect(ctx context.Context) (SSHClienter, error) {
	l := c.Logger
	if l == nil {
		l = logger.Get()
	}
	l.Infof("Connecting to SSH server: %s", c.String())

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = SSHRetryInitialInterval
	b.MaxInterval = SSHRetryMaxInterval
	policy := backoff.WithContext(
		backoff.WithMaxRetries(b, uint64(c.Options.ConnectRetries)), //nolint:gosec
		ctx,
	)

	attempt := 0
	client, err := backoff.RetryNotifyWithData(func() (SSHClienter, error) {
		attempt++
		l.Debugf("Attempt %d to connect via SSH", attempt)
		client, err := c.Dialer.DialContext(ctx, "tcp", c.Address(), c.ClientConfig)
		if err != nil {
			if IsAuthError(err) || IsHostKeyError(err) || ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return client, nil
	}, policy, func(err error, next time.Duration) {
		l.Debugf("Failed to connect, retrying in %v: %v", next, err)
	})
	if err != nil {
		l.Warnf("Failed to connect to %s after %d attempts: %v", c.String(), attempt, err)
		return nil, NewOpError("connect", c.String(), ErrConnection, err)
	}

	l.Debugf("Connected to %s", c.String())
	return client, nil
}
