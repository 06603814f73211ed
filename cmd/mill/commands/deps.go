package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/mill/internal/app"
	"go.trai.ch/mill/internal/core/domain"
)

func (c *CLI) newDepsCmd() *cobra.Command {
	var (
		opts app.DepsOptions
		to   string
	)

	cmd := &cobra.Command{
		Use:   "deps [targets...]",
		Short: "List what targets depend on",
		Long: "List the transitive dependencies of targets, each after its own dependencies. " +
			"With --to, print how each target reaches the given dependency instead.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := c.manifest()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if to != "" {
				for _, from := range args {
					path, err := c.app.Path(manifest, from, to, opts)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintln(out, domain.FormatPath(path))
				}
				return nil
			}

			deps, err := c.app.Deps(manifest, args, opts)
			if err != nil {
				return err
			}
			for _, d := range deps {
				_, _ = fmt.Fprintf(out, "%s\t%s\n", d.Name(), d.Kind())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Also follow build-order and annotation processor edges")
	cmd.Flags().StringVar(&to, "to", "", "Print a dependency path from each target to this dependency")
	return cmd
}
