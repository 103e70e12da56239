package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/miniapp-session/internal/model"
)

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link an external identity to the current account",
	}

	cmd.AddCommand(newLinkTelegramCmd())

	return cmd
}

func newLinkTelegramCmd() *cobra.Command {
	var flags flowFlags

	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Link a Telegram account by confirming a deep link",
		PreRun: func(cmd *cobra.Command, args []string) {
			opener = flags.opener(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}

			if state := client.Session.Mount(ctx); state.Err != nil {
				return state.Err
			}
			client.Session.WaitPrefetch()

			run, err := runFlow(cmd, client.LinkPoller())
			if err != nil {
				return err
			}
			client.Session.WaitPrefetch()

			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(
				flowResult(model.FlowLink, run.snapshot, client.Session.State().User))
			return flowError(run.snapshot, run.cause)
		},
	}

	flags.register(cmd)
	return cmd
}
