package sshutils

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

var SSHKeyReader = func(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// defaultIdentityFiles are tried, in order, when no credential is configured.
var defaultIdentityFiles = []string{
	"~/.ssh/id_ed25519",
	"~/.ssh/id_rsa",
}

// ParsePrivateKey parses PEM key material, decrypting it with passphrase
// when one is given.
func ParsePrivateKey(material []byte, passphrase string) (ssh.Signer, error) {
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(material, []byte(passphrase))
	}
	signer, err := ssh.ParsePrivateKey(material)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return nil, fmt.Errorf("private key is encrypted and no passphrase was given: %w", err)
	}
	return signer, err
}

// AuthMethods builds the client auth methods from opts. Explicit key material,
// an identity file and a password are used when given. Otherwise the agent at
// SSH_AUTH_SOCK and the default identity files are tried.
func AuthMethods(opts Options) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	switch {
	case opts.PrivateKey != "":
		signer, err := ParsePrivateKey([]byte(opts.PrivateKey), opts.Passphrase)
		if err != nil {
			return nil, NewOpError("parse private key", "", ErrInvalidArgument, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	case opts.IdentityFile != "":
		signer, err := loadIdentityFile(opts.IdentityFile, opts.Passphrase)
		if err != nil {
			return nil, NewOpError("load identity file", opts.IdentityFile, ErrInvalidArgument, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if opts.Password != "" {
		methods = append(methods, ssh.Password(opts.Password))
	}
	if len(methods) > 0 {
		return methods, nil
	}

	l := logger.Get()
	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			l.Debugf("Using ssh agent at %s", sock)
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else {
			l.Debugf("Ignoring ssh agent at %s: %v", sock, err)
		}
	}
	for _, path := range defaultIdentityFiles {
		signer, err := loadIdentityFile(path, opts.Passphrase)
		if err != nil {
			continue
		}
		l.Debugf("Using default identity %s", path)
		methods = append(methods, ssh.PublicKeys(signer))
		break
	}

	if len(methods) == 0 {
		return nil, NewOpError("configure auth", "", ErrInvalidArgument,
			fmt.Errorf("no private key, password or ssh agent available"))
	}
	return methods, nil
}

func loadIdentityFile(path, passphrase string) (ssh.Signer, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	material, err := SSHKeyReader(filepath.Clean(expanded))
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return ParsePrivateKey(material, passphrase)
}

// HostKeyCallback verifies server keys against the known_hosts file when
// strict checking is on and accepts any key otherwise.
func HostKeyCallback(opts Options) (ssh.HostKeyCallback, error) {
	if !opts.StrictHostKeyChecking {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec
	}
	path, err := homedir.Expand(opts.KnownHosts)
	if err != nil {
		return nil, NewOpError("load known_hosts", opts.KnownHosts, ErrInvalidArgument, err)
	}
	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, NewOpError("load known_hosts", path, ErrInvalidArgument, err)
	}
	return callback, nil
}

// IsHostKeyError reports whether err came from host key verification.
func IsHostKeyError(err error) bool {
	var keyErr *knownhosts.KeyError
	var revokedErr *knownhosts.RevokedError
	return errors.As(err, &keyErr) || errors.As(err, &revokedErr)
}

// IsAuthError reports whether err is an authentication rejection by the server.
func IsAuthError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unable to authenticate")
}

// ParseHostSpec splits "[user@]host[:port]". A missing port is returned as 0.
func ParseHostSpec(spec string) (user, host string, port int, err error) {
	rest := spec
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		user, rest = rest[:i], rest[i+1:]
	}
	host = rest
	switch {
	case strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]"):
		host = rest[1 : len(rest)-1]
	case strings.HasPrefix(rest, "[") || strings.Count(rest, ":") == 1:
		h, p, splitErr := net.SplitHostPort(rest)
		if splitErr != nil {
			return "", "", 0, NewOpError("parse host", spec, ErrInvalidArgument, splitErr)
		}
		host = h
		if p != "" {
			port, err = strconv.Atoi(p)
			if err != nil || port <= 0 || port > 65535 {
				return "", "", 0, NewOpError("parse host", spec, ErrInvalidArgument,
					fmt.Errorf("invalid port %q", p))
			}
		}
	}
	if host == "" {
		return "", "", 0, NewOpError("parse host", spec, ErrInvalidArgument,
			fmt.Errorf("empty host"))
	}
	return user, host, port, nil
}
