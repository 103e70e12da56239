package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/miniapp-session/internal/api/request"
	"github.com/mcoot/miniapp-session/internal/model"
)

// Backend paths for password auth
const (
	registerPath      = "/auth/register"
	passwordLoginPath = "/auth/login/password"
	logoutPath        = "/auth/logout"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
	}

	cmd.AddCommand(newLoginTelegramCmd())
	cmd.AddCommand(newLoginPasswordCmd())

	return cmd
}

func newLoginTelegramCmd() *cobra.Command {
	var flags flowFlags

	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Sign in by confirming a deep link in Telegram",
		Long: `Start a deep-link login: the bot link is opened (or printed), then the
backend is polled until the bot confirms it, the link expires or polling
gives up. On success the session is resolved again.`,
		PreRun: func(cmd *cobra.Command, args []string) {
			opener = flags.opener(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect(cmd.Context())
			if err != nil {
				return err
			}

			run, err := runFlow(cmd, client.LoginPoller())
			if err != nil {
				return err
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(
				flowResult(model.FlowLogin, run.snapshot, client.Session.State().User))
			return flowError(run.snapshot, run.cause)
		},
	}

	flags.register(cmd)
	return cmd
}

func newLoginPasswordCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Sign in with a username and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, cfg.Timeout)
			defer cancel()

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			if err := client.Transport.Post(ctx, passwordLoginPath, request.LoginRequest{
				Username: username,
				Password: password,
			}, nil); err != nil {
				return err
			}

			state, _ := client.Session.Reinitialize(ctx)
			result, err := sessionResult(ctx, client, state)
			if err != nil {
				return err
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(result)
			return state.Err
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newRegisterCmd() *cobra.Command {
	var username, password, displayName string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a password account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, cfg.Timeout)
			defer cancel()

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			if err := client.Transport.Post(ctx, registerPath, request.RegisterRequest{
				Username:    username,
				Password:    password,
				DisplayName: displayName,
			}, nil); err != nil {
				return err
			}

			state, _ := client.Session.Reinitialize(ctx)
			result, err := sessionResult(ctx, client, state)
			if err != nil {
				return err
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(result)
			return state.Err
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.Flags().StringVarP(&displayName, "name", "n", "", "Display name (defaults to the username)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd, cfg.Timeout)
			defer cancel()

			client, err := connect(ctx)
			if err != nil {
				return err
			}
			if err := client.Transport.Post(ctx, logoutPath, nil, nil); err != nil {
				return err
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).PrintMessage("Logged out")
			return nil
		},
	}
}
