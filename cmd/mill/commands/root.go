// Package commands implements the CLI commands for the mill build orchestrator.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.trai.ch/mill/internal/adapters/launcher/proc"
	"go.trai.ch/mill/internal/adapters/suite"
	"go.trai.ch/mill/internal/app"
	"go.trai.ch/mill/internal/build"
	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/engine/scheduler"
)

// SuiteEnv names the environment variable that selects the manifest when --suite is not given.
const SuiteEnv = "MILL_SUITE"

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, manifest string, targets []string, opts domain.RunOptions) (*scheduler.Report, error)
	Deps(manifest string, targets []string, opts app.DepsOptions) ([]domain.Dependency, error)
	Path(manifest, from, to string, opts app.DepsOptions) ([]domain.Dependency, error)
	Worker(ctx context.Context, in io.Reader, reply io.Writer, out domain.Output) error
}

// LevelSetter adjusts how much the logger prints.
type LevelSetter interface {
	SetLevel(level domain.LogLevel)
}

// CLI represents the command line interface for mill.
type CLI struct {
	app     Application
	levels  LevelSetter
	reply   func() io.WriteCloser
	rootCmd *cobra.Command

	suitePath string
	verbose   int
}

// New creates a new CLI instance with the given app.
func New(a Application, levels LevelSetter) *CLI {
	rootCmd := &cobra.Command{
		Use:           "mill",
		Short:         "An incremental dependency-graph build orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	c := &CLI{
		app:     a,
		levels:  levels,
		reply:   proc.ReplyWriter,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentFlags().StringVarP(&c.suitePath, "suite", "s", "",
		"Path to the suite manifest (default $"+SuiteEnv+" or the nearest "+suite.ManifestFile+")")
	rootCmd.PersistentFlags().CountVarP(&c.verbose, "verbose", "v", "Increase verbosity (-v for failure details, -vv for build reasons)")
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		c.levels.SetLevel(domain.LevelForVerbosity(c.verbose))
	}

	// Registered after -v so that the version flag does not claim the shorthand.
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newDepsCmd())
	rootCmd.AddCommand(c.newVersionCmd())
	rootCmd.AddCommand(c.newWorkerCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// SetIn sets the input stream for the root command. Used for testing.
func (c *CLI) SetIn(in io.Reader) {
	c.rootCmd.SetIn(in)
}

// SetReplyWriter replaces how the worker command opens its reply channel. Used for testing.
func (c *CLI) SetReplyWriter(open func() io.WriteCloser) {
	c.reply = open
}

// manifest resolves the suite manifest: --suite, then $MILL_SUITE, then discovery
// upwards from the working directory.
func (c *CLI) manifest() (string, error) {
	if c.suitePath != "" {
		return c.suitePath, nil
	}
	if env := os.Getenv(SuiteEnv); env != "" {
		return env, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return suite.Discover(wd)
}
