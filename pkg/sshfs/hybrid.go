package sshfs

import (
	"context"
	"fmt"
	"strings"

	"github.com/bacalhau-project/remotefs/pkg/command"
	"github.com/bacalhau-project/remotefs/pkg/sshutils"
)

// RemoveAll deletes p and everything below it with rm -rf. Any path that
// normalizes to the root directory is refused.
func (fs *FileSystem) RemoveAll(ctx context.Context, p *Path) error {
	abs, err := fs.check("remove all", p)
	if err != nil {
		return err
	}
	if p.ToAbsolute().Normalize().String() == Separator {
		return sshutils.NewOpError("remove all", abs, sshutils.ErrInvalidArgument,
			fmt.Errorf("refusing to remove the root directory"))
	}
	_, err = fs.output(ctx, "remove all", abs, "rm -rf -- "+shellQuote(abs))
	return err
}

// Sha256 returns the hex SHA-256 digest of p computed on the remote host.
func (fs *FileSystem) Sha256(ctx context.Context, p *Path) (string, error) {
	abs, err := fs.check("sha256", p)
	if err != nil {
		return "", err
	}
	out, err := fs.output(ctx, "sha256", abs, "sha256sum -- "+shellQuote(abs))
	if err != nil {
		return "", err
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", sshutils.NewOpError("sha256", abs, sshutils.ErrExecution, fmt.Errorf("empty sha256sum output"))
	}
	// sha256sum prefixes the line with a backslash when the name was escaped
	digest := strings.TrimPrefix(fields[0], `\`)
	if len(digest) != 64 {
		return "", sshutils.NewOpError("sha256", abs, sshutils.ErrExecution,
			fmt.Errorf("unexpected sha256sum output %q", out))
	}
	return digest, nil
}

// Exec runs cmd through the remote shell in the default directory. A
// non-zero exit code is reported in the result, not as an error.
func (fs *FileSystem) Exec(ctx context.Context, cmd string) (*command.ExecuteResult, error) {
	if !fs.IsOpen() {
		return nil, sshutils.ClosedError("exec", fs.String())
	}
	return fs.commands.Execute(ctx, "cd "+shellQuote(fs.defaultDir.String())+" && "+cmd)
}

// output runs cmd and returns its trimmed stdout, failing on a non-zero exit.
func (fs *FileSystem) output(ctx context.Context, op, target, cmd string) (string, error) {
	res, err := fs.commands.Execute(ctx, cmd)
	if err != nil {
		return "", err
	}
	out, err := res.Output()
	if err != nil {
		fs.logger.Debugf("%s %s failed: %v", op, target, err)
		return "", sshutils.NewOpError(op, target, sshutils.ErrExecution, err)
	}
	return out, nil
}
