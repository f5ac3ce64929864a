package cmd

import (
	"fmt"
	"os/user"

	"github.com/bacalhau-project/remotefs/pkg/sshutils"
	"github.com/spf13/pflag"
)

// optionKeys are the sshutils.Options keys read from flags, the config file
// and the environment. Keys without a flag come from the last two only.
var optionKeys = []string{
	"user",
	"port",
	"identity_file",
	"private_key",
	"passphrase",
	"password",
	"known_hosts",
	"strict_host_key_checking",
	"proxy_jump",
	"connect_timeout",
	"connect_retries",
	"close_grace",
	"sftp_policy",
	"sftp_max_packet",
}

// optionFlags maps flag names to option keys.
var optionFlags = map[string]string{
	"user":            "user",
	"port":            "port",
	"identity-file":   "identity_file",
	"known-hosts":     "known_hosts",
	"strict-host-key": "strict_host_key_checking",
	"proxy-jump":      "proxy_jump",
	"connect-timeout": "connect_timeout",
	"retries":         "connect_retries",
	"sftp-policy":     "sftp_policy",
}

func (a *app) bindOptionFlags(flags *pflag.FlagSet) {
	defaults := sshutils.DefaultOptions()

	flags.StringP("user", "l", "", "Remote user when the address has none")
	flags.IntP("port", "p", defaults.Port, "Remote port when the address has none")
	flags.StringP("identity-file", "i", "", "Private key file")
	flags.String("known-hosts", defaults.KnownHosts, "known_hosts file used for host key checks")
	flags.Bool("strict-host-key", defaults.StrictHostKeyChecking, "Verify the server key against known_hosts")
	flags.StringP("proxy-jump", "J", "", "Connect through this [user@]host[:port]")
	flags.Duration("connect-timeout", defaults.ConnectTimeout, "Timeout for each connection attempt")
	flags.Int("retries", defaults.ConnectRetries, "Connection retries on network errors")
	flags.String("sftp-policy", defaults.SFTPPolicy,
		fmt.Sprintf("SFTP channel policy (%s or %s)", sshutils.SFTPPolicyShared, sshutils.SFTPPolicyPerCall))

	for name, key := range optionFlags {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}
}

// sshOptions collects the option keys that were set anywhere into the map
// handed to the filesystem and runners.
func (a *app) sshOptions() map[string]any {
	env := make(map[string]any)
	for _, key := range optionKeys {
		if a.v.IsSet(key) {
			env[key] = a.v.Get(key)
		}
	}
	return env
}

// decodedOptions is sshOptions decoded, with the user filled in from the
// local account when nothing set it.
func (a *app) decodedOptions() (sshutils.Options, error) {
	opts, err := sshutils.DecodeOptions(a.sshOptions())
	if err != nil {
		return opts, err
	}
	if opts.User == "" {
		current, err := user.Current()
		if err != nil {
			return opts, fmt.Errorf("failed to determine local user: %w", err)
		}
		opts.User = current.Username
	}
	return opts, nil
}
