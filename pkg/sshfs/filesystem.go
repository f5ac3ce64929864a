package sshfs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bacalhau-project/remotefs/pkg/command"
	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/bacalhau-project/remotefs/pkg/sftprunner"
	"github.com/bacalhau-project/remotefs/pkg/sshutils"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// FileSystem is one open remote filesystem. It owns a CommandRunner and an
// SftpRunner, each on its own connection, and is closed exactly once.
type FileSystem struct {
	provider *Provider
	key      string
	addr     address
	commands command.CommandRunner
	sftp     sftprunner.SftpRunner
	logger   *logger.Logger

	root       *Path
	defaultDir *Path

	mu     sync.RWMutex
	closed bool
}

func newFileSystem(
	provider *Provider,
	key string,
	addr address,
	commands command.CommandRunner,
	sftpRunner sftprunner.SftpRunner,
) *FileSystem {
	fs := &FileSystem{
		provider: provider,
		key:      key,
		addr:     addr,
		commands: commands,
		sftp:     sftpRunner,
		logger:   logger.Get().With(zap.String("filesystem", key)),
	}
	fs.root = newPath(fs, Separator)
	fs.defaultDir = newPath(fs, addr.path)
	return fs
}

// GetPath joins first and more with "/" and parses the result.
func (fs *FileSystem) GetPath(first string, more ...string) *Path {
	if len(more) == 0 {
		return newPath(fs, first)
	}
	var b strings.Builder
	b.WriteString(first)
	for _, part := range more {
		b.WriteString(Separator)
		b.WriteString(part)
	}
	return newPath(fs, b.String())
}

func (fs *FileSystem) GetRootDirectories() []*Path {
	return []*Path{fs.root}
}

func (fs *FileSystem) DefaultDirectory() *Path {
	return fs.defaultDir
}

func (fs *FileSystem) Separator() string {
	return Separator
}

func (fs *FileSystem) CommandRunner() command.CommandRunner {
	return fs.commands
}

func (fs *FileSystem) SftpRunner() sftprunner.SftpRunner {
	return fs.sftp
}

func (fs *FileSystem) String() string {
	return fmt.Sprintf("%s://%s", Scheme, fs.key)
}

func (fs *FileSystem) IsOpen() bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return !fs.closed
}

// Close closes the SftpRunner, then the CommandRunner, and removes the
// filesystem from its provider. Errors from both runners are combined.
// Later calls return nil.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return nil
	}
	fs.closed = true
	fs.mu.Unlock()

	fs.logger.Debug("Closing filesystem")
	err := multierr.Combine(fs.sftp.Close(), fs.commands.Close())
	fs.provider.release(fs.key, fs)
	if err != nil {
		fs.logger.Warnf("Error closing filesystem: %v", err)
	}
	return err
}

// check returns the absolute remote path of p, failing if fs is closed or p
// belongs to another filesystem.
func (fs *FileSystem) check(op string, p *Path) (string, error) {
	if !fs.IsOpen() {
		return "", sshutils.ClosedError(op, fs.String())
	}
	if p == nil || p.fs != fs {
		return "", fmt.Errorf("%s %v: %w", op, p, ErrProviderMismatch)
	}
	return p.ToAbsolute().String(), nil
}
