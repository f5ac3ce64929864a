package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bacalhau-project/remotefs/pkg/command"
	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/bacalhau-project/remotefs/pkg/sshutils"
	"github.com/bacalhau-project/remotefs/pkg/table"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const defaultExecParallelism = 4

// hostRun is the outcome of running the command list on one host.
type hostRun struct {
	target  string
	results []*command.ExecuteResult
	err     error
}

func (a *app) newExecCmd() *cobra.Command {
	var commands []string
	var parallel int

	cmd := &cobra.Command{
		Use:   "exec HOST... -c COMMAND [-c COMMAND...]",
		Short: "Run commands on one or more hosts",
		Long: `Run commands through the remote shell. HOST is [user@]host[:port].

With one host and one command the remote output is copied to the local
stdout and stderr and remotefs exits with the remote exit status. Otherwise
a summary table is printed. Commands for one host run concurrently on up to
--parallel channels.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(commands) == 0 {
				return fmt.Errorf("at least one --command is required")
			}
			if parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1, got %d", parallel)
			}
			opts, err := a.decodedOptions()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			runs := make([]hostRun, len(args))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(parallel)
			for i, spec := range args {
				i, spec := i, spec
				g.Go(func() error {
					runs[i] = runOnHost(gctx, spec, opts, commands, parallel)
					return nil
				})
			}
			_ = g.Wait()

			if len(runs) == 1 && len(commands) == 1 {
				return printSingle(cmd.OutOrStdout(), cmd.ErrOrStderr(), runs[0])
			}
			return printSummary(cmd.OutOrStdout(), runs, commands)
		},
	}

	cmd.Flags().StringArrayVarP(&commands, "command", "c", nil, "Command to run (repeatable)")
	cmd.Flags().IntVar(&parallel, "parallel", defaultExecParallelism, "Maximum concurrent hosts and channels per host")
	return cmd
}

func runOnHost(ctx context.Context, spec string, opts sshutils.Options, commands []string, parallel int) hostRun {
	run := hostRun{target: spec}

	user, host, port, err := sshutils.ParseHostSpec(spec)
	if err != nil {
		run.err = err
		return run
	}
	if user == "" {
		user = opts.User
	}
	if port == 0 {
		port = opts.Port
	}

	config, err := sshutils.NewSSHConfigFunc(host, port, user, opts)
	if err != nil {
		run.err = err
		return run
	}
	run.target = config.String()

	runner, err := command.NewCommandRunner(ctx, config, opts.CloseGrace)
	if err != nil {
		run.err = err
		return run
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.Get().Warnf("Error closing runner for %s: %v", run.target, err)
		}
	}()

	if len(commands) == 1 {
		res, err := runner.Execute(ctx, commands[0])
		run.results, run.err = []*command.ExecuteResult{res}, err
		return run
	}
	run.results, run.err = command.RunParallel(ctx, runner, commands, parallel)
	return run
}

func printSingle(stdout, stderr io.Writer, run hostRun) error {
	if run.err != nil {
		return run.err
	}
	res := run.results[0]
	_, _ = io.WriteString(stdout, res.Stdout)
	_, _ = io.WriteString(stderr, res.Stderr)
	if res.ExitCode != 0 {
		return &ExitCodeError{Code: res.ExitCode}
	}
	return nil
}

func printSummary(out io.Writer, runs []hostRun, commands []string) error {
	rt := table.NewResultTable(out)
	var errs error
	for _, run := range runs {
		if run.err != nil {
			rt.AddResult(run.target, sshutils.ExitStatusUnknown, run.err.Error())
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", run.target, run.err))
			continue
		}
		for i, res := range run.results {
			label := run.target
			if len(commands) > 1 {
				label = fmt.Sprintf("%s [%d]", run.target, i+1)
			}
			output := res.Stdout
			if !res.Success() && res.Stderr != "" {
				output = res.Stderr
			}
			rt.AddResult(label, res.ExitCode, output)
		}
	}
	rt.Render()
	return errs
}
