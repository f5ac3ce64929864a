package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/bacalhau-project/remotefs/pkg/logger"
	"github.com/bacalhau-project/remotefs/pkg/sshfs"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var VersionNumber = "v0.1.0"

const (
	envPrefix  = "REMOTEFS"
	configName = ".remotefs"
)

// app carries the state shared by every subcommand of one root command.
type app struct {
	v        *viper.Viper
	provider *sshfs.Provider

	cfgFile string
	verbose bool
	logFile string
}

// ExitCodeError is returned when a remote command exits non-zero so main can
// exit with the same code.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("remote command exited with status %d", e.Code)
}

// NewRootCmd builds the command tree. Each call gets its own viper instance
// and filesystem registry.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), provider: sshfs.NewProvider()}

	rootCmd := &cobra.Command{
		Use:   "remotefs",
		Short: "Work with files and commands on remote hosts over SSH",
		Long: `remotefs exposes a remote host as a filesystem over a single SSH connection.
File operations go over SFTP; exec runs commands through the remote shell.

Paths are given as ssh://[user@]host[:port]/absolute/path.`,
		Version:       VersionNumber,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.remotefs.yaml)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.logFile, "log-file", "", "Also write logs to this file")
	a.bindOptionFlags(flags)

	rootCmd.AddCommand(
		a.newLsCmd(),
		a.newStatCmd(),
		a.newCatCmd(),
		a.newGetCmd(),
		a.newPutCmd(),
		a.newMkdirCmd(),
		a.newRmCmd(),
		a.newMvCmd(),
		a.newLnCmd(),
		a.newSumCmd(),
		a.newExecCmd(),
		newCompletionCmd(),
	)
	return rootCmd
}

// Execute runs the root command with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// initConfig loads .env, the config file and REMOTEFS_ environment variables,
// then sets up logging.
func (a *app) initConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("failed to find home directory: %w", err)
		}
		a.v.AddConfigPath(home)
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(configName)
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	if err := logger.Initialize(logger.Config{
		Level:         level,
		FilePath:      a.logFile,
		EnableConsole: true,
	}); err != nil {
		return err
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		logger.Get().Debugf("Using config file: %s", used)
	}
	return nil
}
