package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/mill/internal/adapters/launcher/proc"
	"go.trai.ch/mill/internal/core/domain"
)

func (c *CLI) newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    proc.WorkerCommand,
		Short:  "Run one task handed over by an isolating build",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reply := c.reply()
			defer func() {
				_ = reply.Close()
			}()

			out := domain.Output{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
			return c.app.Worker(cmd.Context(), cmd.InOrStdin(), reply, out)
		},
	}
}
