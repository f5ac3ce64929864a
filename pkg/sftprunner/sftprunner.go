// Package sftprunner runs units of work against an SFTP channel of an SSH
// connection.
package sftprunner

import (
	"context"

	"github.com/pkg/sftp"
)

// Sftp is one unit of work. The client is only valid until it returns and
// must not be closed or retained.
type Sftp func(ctx context.Context, client *sftp.Client) error

type SftpRunner interface {
	// Execute runs work on a channel that is not used by anyone else for the
	// duration of the call. The error returned by work is passed through.
	Execute(ctx context.Context, work Sftp) error
	Close() error
}

// Call runs fn on r and returns its value.
func Call[T any](
	ctx context.Context,
	r SftpRunner,
	fn func(context.Context, *sftp.Client) (T, error),
) (T, error) {
	var result T
	err := r.Execute(ctx, func(ctx context.Context, client *sftp.Client) error {
		v, err := fn(ctx, client)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
