package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/bacalhau-project/remotefs/pkg/sshfs"
)

// openPath opens the filesystem for uri and returns the path it names. The
// caller must call closeFn when done.
func (a *app) openPath(ctx context.Context, uri string) (*sshfs.Path, func(), error) {
	if !strings.HasPrefix(uri, sshfs.Scheme+"://") {
		return nil, nil, fmt.Errorf("%q is not an %s:// address", uri, sshfs.Scheme)
	}
	fs, err := a.provider.NewFileSystem(ctx, uri, a.sshOptions())
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := fs.Close(); err != nil {
			logger.Get().Warnf("Error closing %s: %v", fs, err)
		}
	}
	return fs.DefaultDirectory(), closeFn, nil
}

// siblingOrURI resolves dest for a rename of p. An ssh:// dest is looked up
// among the open filesystems. Anything else is a path, resolved against the
// parent of p when relative.
func (a *app) siblingOrURI(p *sshfs.Path, dest string) (*sshfs.Path, error) {
	if strings.HasPrefix(dest, sshfs.Scheme+"://") {
		return a.provider.GetPath(dest)
	}
	return p.ResolveSibling(dest), nil
}
