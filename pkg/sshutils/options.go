package sshutils

import (
	"fmt"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
)

// Options is the decoded form of the configuration map handed to a
// filesystem or runner. Keys that are not recognised are kept in Extra and
// passed through untouched.
type Options struct {
	User                  string         `mapstructure:"user"`
	Port                  int            `mapstructure:"port"`
	IdentityFile          string         `mapstructure:"identity_file"`
	PrivateKey            string         `mapstructure:"private_key"`
	Passphrase            string         `mapstructure:"passphrase"`
	Password              string         `mapstructure:"password"`
	KnownHosts            string         `mapstructure:"known_hosts"`
	StrictHostKeyChecking bool           `mapstructure:"strict_host_key_checking"`
	ProxyJump             string         `mapstructure:"proxy_jump"`
	ConnectTimeout        time.Duration  `mapstructure:"connect_timeout"`
	ConnectRetries        int            `mapstructure:"connect_retries"`
	CloseGrace            time.Duration  `mapstructure:"close_grace"`
	SFTPPolicy            string         `mapstructure:"sftp_policy"`
	SFTPMaxPacket         int            `mapstructure:"sftp_max_packet"`
	Extra                 map[string]any `mapstructure:",remain"`
}

// DefaultOptions returns the options used for keys absent from the map.
func DefaultOptions() Options {
	return Options{
		Port:                  DefaultSSHPort,
		KnownHosts:            defaultKnownHosts,
		StrictHostKeyChecking: true,
		ConnectTimeout:        SSHDialTimeout,
		ConnectRetries:        SSHRetryAttempts,
		CloseGrace:            ChannelCloseGrace,
		SFTPPolicy:            SFTPPolicyShared,
	}
}

// DecodeOptions decodes env on top of DefaultOptions. Values are weakly
// typed so strings coming from flags or environment variables decode into
// ints, bools and durations.
func DecodeOptions(env map[string]any) (Options, error) {
	opts := DefaultOptions()
	if len(env) == 0 {
		return opts, opts.Validate()
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return opts, fmt.Errorf("failed to build options decoder: %w", err)
	}
	if err := decoder.Decode(env); err != nil {
		return opts, NewOpError("decode options", "", ErrInvalidArgument, err)
	}

	return opts, opts.Validate()
}

// Validate checks option values and expands ~ in file paths.
func (o *Options) Validate() error {
	if o.Port < 0 || o.Port > 65535 {
		return NewOpError("validate options", "port", ErrInvalidArgument,
			fmt.Errorf("invalid port number: %d", o.Port))
	}
	if o.ConnectRetries < 0 {
		return NewOpError("validate options", "connect_retries", ErrInvalidArgument,
			fmt.Errorf("must not be negative: %d", o.ConnectRetries))
	}
	if o.SFTPMaxPacket < 0 {
		return NewOpError("validate options", "sftp_max_packet", ErrInvalidArgument,
			fmt.Errorf("must not be negative: %d", o.SFTPMaxPacket))
	}
	switch o.SFTPPolicy {
	case "":
		o.SFTPPolicy = SFTPPolicyShared
	case SFTPPolicyShared, SFTPPolicyPerCall:
	default:
		return NewOpError("validate options", "sftp_policy", ErrInvalidArgument,
			fmt.Errorf("unknown policy %q", o.SFTPPolicy))
	}

	var err error
	if o.IdentityFile, err = homedir.Expand(o.IdentityFile); err != nil {
		return NewOpError("validate options", "identity_file", ErrInvalidArgument, err)
	}
	if o.KnownHosts, err = homedir.Expand(o.KnownHosts); err != nil {
		return NewOpError("validate options", "known_hosts", ErrInvalidArgument, err)
	}
	return nil
}
