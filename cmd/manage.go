package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newMkdirCmd() *cobra.Command {
	var parents bool

	cmd := &cobra.Command{
		Use:   "mkdir URI",
		Short: "Create a remote directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, closeFn, err := a.openPath(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			if parents {
				return p.FileSystem().MkdirAll(ctx, p)
			}
			return p.FileSystem().Mkdir(ctx, p)
		},
	}

	cmd.Flags().BoolVarP(&parents, "parents", "P", false, "Create missing parents")
	return cmd
}

func (a *app) newRmCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "rm URI",
		Short: "Remove a remote file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, closeFn, err := a.openPath(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			if recursive {
				return p.FileSystem().RemoveAll(ctx, p)
			}
			return p.FileSystem().Remove(ctx, p)
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Remove directories and their contents")
	return cmd
}

func (a *app) newLnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ln TARGET URI",
		Short: "Create a remote symbolic link",
		Long: `Create a symbolic link at URI pointing at TARGET. TARGET is stored as
given and is resolved by the server when the link is followed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			link, closeFn, err := a.openPath(ctx, args[1])
			if err != nil {
				return err
			}
			defer closeFn()

			return link.FileSystem().Symlink(ctx, args[0], link)
		},
	}
}

func (a *app) newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv URI DEST",
		Short: "Rename a remote file",
		Long: `Rename a remote file. DEST is either a path on the same host, relative
to the directory holding the source, or an ssh:// address of the same host.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, closeFn, err := a.openPath(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			dest, err := a.siblingOrURI(p, args[1])
			if err != nil {
				return err
			}
			return p.FileSystem().Rename(ctx, p, dest)
		},
	}
}

func (a *app) newSumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sum URI",
		Short: "Print the SHA-256 of a remote file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, closeFn, err := a.openPath(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			sum, err := p.FileSystem().Sha256(ctx, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, p)
			return nil
		},
	}
}
