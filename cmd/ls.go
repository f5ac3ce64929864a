package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/bacalhau-project/remotefs/pkg/sshfs"
	"github.com/bacalhau-project/remotefs/pkg/table"
	"github.com/spf13/cobra"
)

func (a *app) newLsCmd() *cobra.Command {
	var long, recursive bool

	cmd := &cobra.Command{
		Use:   "ls URI",
		Short: "List a remote directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir, closeFn, err := a.openPath(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			out := cmd.OutOrStdout()
			if recursive {
				return dir.FileSystem().Walk(ctx, dir, func(p *sshfs.Path, _ os.FileInfo, err error) error {
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p, err)
						return nil
					}
					fmt.Fprintln(out, p)
					return nil
				})
			}

			entries, err := dir.FileSystem().ReadDir(ctx, dir)
			if err != nil {
				return err
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

			if !long {
				for _, e := range entries {
					fmt.Fprintln(out, e.Name())
				}
				return nil
			}
			ft := table.NewFileTable(out)
			for _, e := range entries {
				if e.Mode()&os.ModeSymlink == 0 {
					ft.AddEntry(e)
					continue
				}
				target, err := dir.FileSystem().Readlink(ctx, dir.Resolve(e.Name()))
				if err != nil {
					logger.Get().Warnf("Failed to read link %s: %v", e.Name(), err)
					ft.AddLink(e, "?")
					continue
				}
				ft.AddLink(e, target.String())
			}
			ft.Render()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "L", false, "Show mode, size, modification time and link targets")
	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "List every path below the directory")
	return cmd
}
