package cli

import (
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, cfg.Timeout)
			defer cancel()

			client, err := connect(ctx)
			if err != nil {
				return err
			}

			var result HealthResult
			if err := client.Transport.Get(ctx, "/health", nil, &result); err != nil {
				return err
			}

			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(result)
			return nil
		},
	}
}
