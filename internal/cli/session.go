package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/mcoot/miniapp-session/internal/cache"
	"github.com/mcoot/miniapp-session/internal/factory"
	"github.com/mcoot/miniapp-session/internal/model"
	"github.com/mcoot/miniapp-session/internal/session"
)

var errNotSignedIn = errors.New("not signed in")

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Resolve the session against the backend",
		Long: `Resolve the session the way the app does on start: detect the platform,
send the credentials and report who the backend says we are.`,
		PreRun: func(cmd *cobra.Command, args []string) {
			entryURL, _ = cmd.Flags().GetString("entry-url")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}

			state := client.Session.Mount(ctx)
			client.Session.WaitPrefetch()

			result, err := sessionResult(ctx, client, state)
			if err != nil {
				return err
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(result)
			if state.Err != nil {
				return state.Err
			}
			return nil
		},
	}

	cmd.Flags().String("entry-url", "", "Launch URL carrying invite, referral, mode and page parameters")
	cmd.AddCommand(newLinkedCmd())

	return cmd
}

func newLinkedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "linked",
		Short: "Show the identities linked to the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := connect(ctx)
			if err != nil {
				return err
			}

			state := client.Session.Mount(ctx)
			if state.Err != nil {
				return state.Err
			}
			if state.User == nil {
				return errNotSignedIn
			}
			client.Session.WaitPrefetch()

			value, err := client.Cache.Fetch(ctx, cache.KeyLinkedAccounts, func(ctx context.Context) (any, error) {
				var accounts model.LinkedAccounts
				if err := client.Transport.Get(ctx, session.LinkedAccountsPath, nil, &accounts); err != nil {
					return nil, err
				}
				return &accounts, nil
			})
			if err != nil {
				return err
			}
			accounts := value.(*model.LinkedAccounts)

			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(LinkedResult{
				TelegramID: accounts.TelegramID,
				Linked:     accounts.Linked,
			})
			return nil
		},
	}
}

func sessionResult(ctx context.Context, client *factory.Client, state model.SessionState) (SessionResult, error) {
	verdict, err := client.Probe.Detect(ctx)
	if err != nil {
		return SessionResult{}, err
	}
	result := SessionResult{
		Phase:     string(state.Phase),
		Ready:     state.IsReady,
		Platform:  string(verdict.Kind),
		UsingMock: verdict.UsingMock,
		User:      userResult(state.User),
	}
	if state.Err != nil {
		result.Error = state.Err.Error()
	}
	return result, nil
}
