package cli

import (
	"github.com/spf13/cobra"
)

func newPlatformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform",
		Long: `Show how the client would present itself to the backend: embedded (Telegram
init data) or web (session cookie). Mock overrides only apply with --dev.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}

			verdict, err := client.Probe.Detect(ctx)
			if err != nil {
				return err
			}
			result := PlatformResult{
				Kind:      string(verdict.Kind),
				UsingMock: verdict.UsingMock,
				Cookie:    verdict.CookieValue(),
			}
			if verdict.UsingMock {
				identity, err := client.Probe.MockIdentity(ctx)
				if err != nil {
					return err
				}
				id := identityResult(identity, true)
				result.Identity = &id
			}

			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(result)
			return nil
		},
	}
}
