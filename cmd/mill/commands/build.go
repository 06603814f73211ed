package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/mill/internal/core/domain"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	var (
		opts          domain.RunOptions
		disabledKinds []string
		cpus          int
	)

	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Build targets and everything they depend on",
		Long:  "Build targets and everything they depend on. Without targets every dependency of the suite is built.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := c.manifest()
			if err != nil {
				return err
			}

			for _, k := range disabledKinds {
				kind, err := domain.ParseKind(k)
				if err != nil {
					return err
				}
				opts.DisabledKinds = append(opts.DisabledKinds, kind)
			}
			if cpus > 0 {
				opts.MaxParallelism = cpus
			}
			opts.Verbose = c.verbose

			_, err = c.app.Build(cmd.Context(), manifest, args, opts)
			return err
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.Force, "force", "f", false, "Rebuild even when outputs are up to date")
	flags.BoolVarP(&opts.Clean, "clean", "c", false, "Remove outputs before building")
	flags.StringSliceVar(&opts.Only, "only", nil, "Only run these tasks; the rest of the graph counts as built")
	flags.IntVarP(&cpus, "cpus", "j", 0, "Limit the CPU budget (default: all CPUs, or the suite's maxParallelism)")
	flags.BoolVar(&opts.Serial, "serial", false, "Run one task at a time")
	flags.BoolVar(&opts.Shallow, "shallow", false, "Do not compare outputs against dependency outputs")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "Abort the build after this long (0 disables)")
	flags.BoolVar(&opts.Isolate, "isolate", false, "Run each task in its own process")
	flags.StringSliceVar(&disabledKinds, "disable-kind", nil, "Do not build dependencies of these kinds")
	flags.StringVarP(&opts.OutputRoot, "output-root", "o", "", "Directory for build outputs (default: the suite's outputRoot)")
	flags.BoolVar(&opts.Progress, "progress", false, "Show a live task list while building")
	flags.IntVar(&opts.FetchAttempts, "fetch-attempts", 0, "Download attempts for libraries (default: the suite's fetchAttempts)")
	return cmd
}
