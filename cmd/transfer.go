package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/spf13/cobra"
)

func (a *app) newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat URI",
		Short: "Print a remote file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, closeFn, err := a.openPath(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			_, err = p.FileSystem().CopyTo(ctx, p, cmd.OutOrStdout())
			return err
		},
	}
}

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get URI LOCAL",
		Short: "Download a remote file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			p, closeFn, err := a.openPath(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			f, err := os.Create(filepath.Clean(args[1]))
			if err != nil {
				return fmt.Errorf("failed to create local file: %w", err)
			}
			defer func() {
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}
			}()

			n, err := p.FileSystem().CopyTo(ctx, p, f)
			if err != nil {
				return err
			}
			logger.Get().Infof("Downloaded %d bytes from %s", n, p)
			return nil
		},
	}
}

func (a *app) newPutCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "put LOCAL URI",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(filepath.Clean(args[0]))
			if err != nil {
				return fmt.Errorf("failed to open local file: %w", err)
			}
			defer f.Close()

			perm, err := uploadMode(f, mode)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			p, closeFn, err := a.openPath(ctx, args[1])
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := p.FileSystem().CopyFrom(ctx, p, f, perm)
			if err != nil {
				return err
			}
			logger.Get().Infof("Uploaded %d bytes to %s", n, p)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Octal permissions for the remote file (default: keep local)")
	return cmd
}

// uploadMode parses an octal mode, falling back to the local file's bits.
func uploadMode(f *os.File, mode string) (os.FileMode, error) {
	if mode != "" {
		bits, err := strconv.ParseUint(mode, 8, 32)
		if err != nil || bits > 0o7777 {
			return 0, fmt.Errorf("invalid mode %q", mode)
		}
		return os.FileMode(bits), nil
	}
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat local file: %w", err)
	}
	return info.Mode().Perm(), nil
}
