package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type statView struct {
	Path    string    `yaml:"path"`
	Name    string    `yaml:"name"`
	Size    int64     `yaml:"size"`
	Mode    string    `yaml:"mode"`
	IsDir   bool      `yaml:"is_dir"`
	ModTime time.Time `yaml:"mod_time"`
}

func newStatView(path string, info os.FileInfo) statView {
	return statView{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		Mode:    info.Mode().String(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime().UTC(),
	}
}

func (a *app) newStatCmd() *cobra.Command {
	var output string
	var noFollow bool

	cmd := &cobra.Command{
		Use:   "stat URI",
		Short: "Show file attributes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "text" && output != "yaml" {
				return fmt.Errorf("unknown output format %q", output)
			}

			ctx := cmd.Context()
			p, closeFn, err := a.openPath(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			stat := p.FileSystem().Stat
			if noFollow {
				stat = p.FileSystem().Lstat
			}
			info, err := stat(ctx, p)
			if err != nil {
				return err
			}
			view := newStatView(p.String(), info)

			out := cmd.OutOrStdout()
			if output == "yaml" {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(view); err != nil {
					return fmt.Errorf("failed to encode yaml: %w", err)
				}
				return enc.Close()
			}
			fmt.Fprintf(out, "  Path: %s\n", view.Path)
			fmt.Fprintf(out, "  Size: %d\n", view.Size)
			fmt.Fprintf(out, "  Mode: %s\n", view.Mode)
			fmt.Fprintf(out, "Modify: %s\n", view.ModTime.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text or yaml)")
	cmd.Flags().BoolVarP(&noFollow, "no-dereference", "P", false, "Do not follow a final symlink")
	return cmd
}
