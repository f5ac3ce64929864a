// Package sshfs exposes a remote Unix filesystem reachable over SSH as a set
// of paths and file operations. File I/O goes over SFTP; operations SFTP
// cannot express run as commands on the same host.
package sshfs

import (
	"context"
	"fmt"
	"net/url"
	"os/user"
	"strconv"
	"sync"

	"github.com/bacalhau-project/remotefs/pkg/command"
	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/bacalhau-project/remotefs/pkg/sftprunner"
	"github.com/bacalhau-project/remotefs/pkg/sshutils"
)

const Scheme = "ssh"

// Provider creates filesystems from ssh:// URIs and keeps at most one open
// filesystem per user@host:port.
type Provider struct {
	mu          sync.Mutex
	filesystems map[string]*FileSystem
}

func NewProvider() *Provider {
	return &Provider{filesystems: make(map[string]*FileSystem)}
}

var defaultProvider = NewProvider()

// DefaultProvider returns the process-wide provider.
func DefaultProvider() *Provider {
	return defaultProvider
}

// address is the parsed form of ssh://[user@]host[:port]/abs/dir.
type address struct {
	user string
	host string
	port int
	path string
}

func (a address) key() string {
	return fmt.Sprintf("%s@%s:%d", a.user, a.host, a.port)
}

// parseURI resolves the user and port from the URI first, then from opts,
// then from the local user and the default SSH port.
func parseURI(raw string, opts sshutils.Options) (address, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return address{}, sshutils.NewOpError("parse uri", raw, sshutils.ErrInvalidArgument, err)
	}
	if u.Scheme != Scheme {
		return address{}, sshutils.NewOpError("parse uri", raw, sshutils.ErrInvalidArgument,
			fmt.Errorf("unsupported scheme %q", u.Scheme))
	}

	addr := address{host: u.Hostname(), path: u.Path}
	if u.Opaque != "" {
		addr.path = u.Opaque
	}
	if addr.host == "" && u.Opaque == "" {
		return address{}, sshutils.NewOpError("parse uri", raw, sshutils.ErrInvalidArgument,
			fmt.Errorf("missing host"))
	}

	switch {
	case u.User != nil && u.User.Username() != "":
		addr.user = u.User.Username()
	case opts.User != "":
		addr.user = opts.User
	default:
		current, err := user.Current()
		if err != nil {
			return address{}, sshutils.NewOpError("parse uri", raw, sshutils.ErrInvalidArgument,
				fmt.Errorf("no user given and current user unknown: %w", err))
		}
		addr.user = current.Username
	}

	switch {
	case u.Port() != "":
		port, err := strconv.Atoi(u.Port())
		if err != nil || port <= 0 || port > 65535 {
			return address{}, sshutils.NewOpError("parse uri", raw, sshutils.ErrInvalidArgument,
				fmt.Errorf("invalid port %q", u.Port()))
		}
		addr.port = port
	case opts.Port > 0:
		addr.port = opts.Port
	default:
		addr.port = sshutils.DefaultSSHPort
	}

	return addr, nil
}

// NewFileSystem connects to the host named by uri and returns a filesystem
// whose default directory is the URI path, which must be absolute. env is
// decoded into sshutils.Options.
func (p *Provider) NewFileSystem(ctx context.Context, uri string, env map[string]any) (*FileSystem, error) {
	opts, err := sshutils.DecodeOptions(env)
	if err != nil {
		return nil, err
	}
	addr, err := parseURI(uri, opts)
	if err != nil {
		return nil, err
	}
	if addr.path == "" || addr.path[0] != '/' {
		return nil, sshutils.NewOpError("new filesystem", uri, sshutils.ErrInvalidArgument,
			fmt.Errorf("default directory %q must be absolute", addr.path))
	}

	key := addr.key()
	if err := p.reserve(key); err != nil {
		return nil, err
	}
	fs, err := p.open(ctx, key, addr, opts)
	if err != nil {
		p.release(key, nil)
		return nil, err
	}

	p.mu.Lock()
	p.filesystems[key] = fs
	p.mu.Unlock()
	return fs, nil
}

func (p *Provider) open(ctx context.Context, key string, addr address, opts sshutils.Options) (*FileSystem, error) {
	l := logger.Get()
	l.Debugf("Opening filesystem %s", key)

	config, err := sshutils.NewSSHConfigFunc(addr.host, addr.port, addr.user, opts)
	if err != nil {
		return nil, err
	}
	commands, err := command.NewCommandRunner(ctx, config, opts.CloseGrace)
	if err != nil {
		return nil, err
	}
	l.Debug("Building SftpRunner")
	sftpRunner, err := sftprunner.NewSftpRunner(ctx, config, opts)
	if err != nil {
		if closeErr := commands.Close(); closeErr != nil {
			l.Debugf("Error closing command runner: %v", closeErr)
		}
		return nil, err
	}

	return newFileSystem(p, key, addr, commands, sftpRunner), nil
}

// reserve claims key so concurrent NewFileSystem calls cannot both connect.
func (p *Provider) reserve(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.filesystems[key]; ok {
		return fmt.Errorf("%s: %w", key, ErrFileSystemExists)
	}
	p.filesystems[key] = nil
	return nil
}

// release drops key if it still maps to fs.
func (p *Provider) release(key string, fs *FileSystem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current, ok := p.filesystems[key]; ok && current == fs {
		delete(p.filesystems, key)
	}
}

// GetFileSystem returns the open filesystem for the host named by uri.
func (p *Provider) GetFileSystem(uri string) (*FileSystem, error) {
	addr, err := parseURI(uri, sshutils.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return p.lookup(addr.key())
}

// GetPath returns the path named by uri on its open filesystem.
func (p *Provider) GetPath(uri string) (*Path, error) {
	addr, err := parseURI(uri, sshutils.DefaultOptions())
	if err != nil {
		return nil, err
	}
	fs, err := p.lookup(addr.key())
	if err != nil {
		return nil, err
	}
	return fs.GetPath(addr.path), nil
}

func (p *Provider) lookup(key string) (*FileSystem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fs := p.filesystems[key]
	if fs == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrFileSystemNotFound)
	}
	return fs, nil
}
