package cli

import (
	"github.com/spf13/cobra"
)

func newDevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Development helpers for a local backend",
	}

	cmd.AddCommand(newDevConfirmCmd())

	return cmd
}

func newDevConfirmCmd() *cobra.Command {
	var telegramID int64

	cmd := &cobra.Command{
		Use:   "confirm <token>",
		Short: "Confirm a handshake as the bot would",
		Long: `Confirm a pending handshake as the given Telegram user, standing in for the
bot. The backend must run with the dev endpoints enabled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, cfg.Timeout)
			defer cancel()

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			result, err := confirmHandshake(ctx, client.Transport, args[0], simulatedProfile(telegramID))
			if err != nil {
				return err
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&telegramID, "telegram-id", 0, "Telegram user id confirming the handshake")
	_ = cmd.MarkFlagRequired("telegram-id")

	return cmd
}
