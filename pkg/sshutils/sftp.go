package sshutils

import (
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// NewSFTPClientFunc opens the sftp subsystem on a connected client.
// Tests may replace it.
var NewSFTPClientFunc = func(conn *ssh.Client, opts ...sftp.ClientOption) (*sftp.Client, error) {
	return sftp.NewClient(conn, opts...)
}

// SFTPClientOptions maps Options onto sftp client options.
func SFTPClientOptions(opts Options) []sftp.ClientOption {
	var clientOpts []sftp.ClientOption
	if opts.SFTPMaxPacket > 0 {
		clientOpts = append(clientOpts, sftp.MaxPacketUnchecked(opts.SFTPMaxPacket))
	}
	return clientOpts
}
