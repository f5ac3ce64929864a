package sshfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bacalhau-project/remotefs/pkg/sftprunner"
	"github.com/pkg/sftp"
)

func (fs *FileSystem) Stat(ctx context.Context, p *Path) (os.FileInfo, error) {
	abs, err := fs.check("stat", p)
	if err != nil {
		return nil, err
	}
	return sftprunner.Call(ctx, fs.sftp, func(_ context.Context, c *sftp.Client) (os.FileInfo, error) {
		return c.Stat(abs)
	})
}

// Lstat is Stat without following a final symlink.
func (fs *FileSystem) Lstat(ctx context.Context, p *Path) (os.FileInfo, error) {
	abs, err := fs.check("lstat", p)
	if err != nil {
		return nil, err
	}
	return sftprunner.Call(ctx, fs.sftp, func(_ context.Context, c *sftp.Client) (os.FileInfo, error) {
		return c.Lstat(abs)
	})
}

// Exists reports whether p can be stat'ed. Errors other than "not exist"
// are returned.
func (fs *FileSystem) Exists(ctx context.Context, p *Path) (bool, error) {
	_, err := fs.Stat(ctx, p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (fs *FileSystem) ReadDir(ctx context.Context, p *Path) ([]os.FileInfo, error) {
	abs, err := fs.check("readdir", p)
	if err != nil {
		return nil, err
	}
	return sftprunner.Call(ctx, fs.sftp, func(_ context.Context, c *sftp.Client) ([]os.FileInfo, error) {
		return c.ReadDir(abs)
	})
}

func (fs *FileSystem) ReadFile(ctx context.Context, p *Path) ([]byte, error) {
	abs, err := fs.check("read", p)
	if err != nil {
		return nil, err
	}
	return sftprunner.Call(ctx, fs.sftp, func(_ context.Context, c *sftp.Client) ([]byte, error) {
		f, err := c.Open(abs)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	})
}

// WriteFile creates or truncates p and writes data to it. A non-zero perm is
// applied after the write.
func (fs *FileSystem) WriteFile(ctx context.Context, p *Path, data []byte, perm os.FileMode) error {
	_, err := fs.CopyFrom(ctx, p, bytes.NewReader(data), perm)
	return err
}

// CopyTo streams the content of p into w.
func (fs *FileSystem) CopyTo(ctx context.Context, p *Path, w io.Writer) (int64, error) {
	abs, err := fs.check("copy to", p)
	if err != nil {
		return 0, err
	}
	return sftprunner.Call(ctx, fs.sftp, func(_ context.Context, c *sftp.Client) (int64, error) {
		f, err := c.Open(abs)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		return f.WriteTo(w)
	})
}

// CopyFrom creates or truncates p and fills it from r.
func (fs *FileSystem) CopyFrom(ctx context.Context, p *Path, r io.Reader, perm os.FileMode) (int64, error) {
	abs, err := fs.check("copy from", p)
	if err != nil {
		return 0, err
	}
	return sftprunner.Call(ctx, fs.sftp, func(_ context.Context, c *sftp.Client) (int64, error) {
		f, err := c.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
		if err != nil {
			return 0, err
		}
		n, err := io.Copy(f, r)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return n, err
		}
		if perm != 0 {
			return n, c.Chmod(abs, perm)
		}
		return n, nil
	})
}

func (fs *FileSystem) Mkdir(ctx context.Context, p *Path) error {
	return fs.run(ctx, "mkdir", p, func(c *sftp.Client, abs string) error {
		return c.Mkdir(abs)
	})
}

// MkdirAll creates p and any missing parents.
func (fs *FileSystem) MkdirAll(ctx context.Context, p *Path) error {
	return fs.run(ctx, "mkdir", p, func(c *sftp.Client, abs string) error {
		return c.MkdirAll(abs)
	})
}

// Remove deletes a file or an empty directory.
func (fs *FileSystem) Remove(ctx context.Context, p *Path) error {
	return fs.run(ctx, "remove", p, func(c *sftp.Client, abs string) error {
		return c.Remove(abs)
	})
}

func (fs *FileSystem) Rename(ctx context.Context, from, to *Path) error {
	target, err := fs.check("rename", to)
	if err != nil {
		return err
	}
	return fs.run(ctx, "rename", from, func(c *sftp.Client, abs string) error {
		return c.Rename(abs, target)
	})
}

func (fs *FileSystem) Chmod(ctx context.Context, p *Path, mode os.FileMode) error {
	return fs.run(ctx, "chmod", p, func(c *sftp.Client, abs string) error {
		return c.Chmod(abs, mode)
	})
}

func (fs *FileSystem) Chtimes(ctx context.Context, p *Path, atime, mtime time.Time) error {
	return fs.run(ctx, "chtimes", p, func(c *sftp.Client, abs string) error {
		return c.Chtimes(abs, atime, mtime)
	})
}

// Symlink creates link pointing at target. target is stored verbatim.
func (fs *FileSystem) Symlink(ctx context.Context, target string, link *Path) error {
	return fs.run(ctx, "symlink", link, func(c *sftp.Client, abs string) error {
		return c.Symlink(target, abs)
	})
}

func (fs *FileSystem) Readlink(ctx context.Context, p *Path) (*Path, error) {
	abs, err := fs.check("readlink", p)
	if err != nil {
		return nil, err
	}
	target, err := sftprunner.Call(ctx, fs.sftp, func(_ context.Context, c *sftp.Client) (string, error) {
		return c.ReadLink(abs)
	})
	if err != nil {
		return nil, err
	}
	return fs.GetPath(target), nil
}

// RealPath asks the server to canonicalize p.
func (fs *FileSystem) RealPath(ctx context.Context, p *Path) (*Path, error) {
	abs, err := fs.check("realpath", p)
	if err != nil {
		return nil, err
	}
	resolved, err := sftprunner.Call(ctx, fs.sftp, func(_ context.Context, c *sftp.Client) (string, error) {
		return c.RealPath(abs)
	})
	if err != nil {
		return nil, err
	}
	return fs.GetPath(resolved), nil
}

// WalkFunc is called for every entry below the walk root, root included.
// Returning filepath.SkipDir for a directory skips its contents.
type WalkFunc func(p *Path, info os.FileInfo, err error) error

// Walk lists the tree under root in one unit of work, then calls fn for each
// entry in walk order. fn may use the filesystem.
func (fs *FileSystem) Walk(ctx context.Context, root *Path, fn WalkFunc) error {
	type entry struct {
		path string
		info os.FileInfo
		err  error
	}

	abs, err := fs.check("walk", root)
	if err != nil {
		return err
	}
	entries, err := sftprunner.Call(ctx, fs.sftp, func(ctx context.Context, c *sftp.Client) ([]entry, error) {
		var entries []entry
		walker := c.Walk(abs)
		for walker.Step() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			entries = append(entries, entry{path: walker.Path(), info: walker.Stat(), err: walker.Err()})
		}
		return entries, nil
	})
	if err != nil {
		return err
	}

	var skipped []string
	for _, e := range entries {
		if isBelow(e.path, skipped) {
			continue
		}
		err := fn(fs.GetPath(e.path), e.info, e.err)
		switch {
		case err == nil:
		case errors.Is(err, filepath.SkipDir) && e.info != nil && e.info.IsDir():
			skipped = append(skipped, e.path)
		case errors.Is(err, filepath.SkipDir):
			skipped = append(skipped, path.Dir(e.path))
		default:
			return err
		}
	}
	return nil
}

func isBelow(p string, dirs []string) bool {
	for _, dir := range dirs {
		if p == dir || strings.HasPrefix(p, strings.TrimSuffix(dir, Separator)+Separator) {
			return true
		}
	}
	return false
}

// run executes fn on the absolute path of p as one unit of work.
func (fs *FileSystem) run(ctx context.Context, op string, p *Path, fn func(c *sftp.Client, abs string) error) error {
	abs, err := fs.check(op, p)
	if err != nil {
		return err
	}
	return fs.sftp.Execute(ctx, func(_ context.Context, c *sftp.Client) error {
		return fn(c, abs)
	})
}
