package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mcoot/miniapp-session/internal/platform"
	"github.com/mcoot/miniapp-session/internal/prefs"
)

func newMockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Manage the mock Telegram identity override",
		Long: `Manage the persisted mock override. The override is only honoured by
commands run with --dev (or MINIAPP_DEV=true).`,
	}

	cmd.AddCommand(newMockEnableCmd())
	cmd.AddCommand(newMockDisableCmd())
	cmd.AddCommand(newMockClearCmd())
	cmd.AddCommand(newMockListCmd())
	cmd.AddCommand(newMockSelectCmd())

	return cmd
}

func newMockEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "Impersonate the selected mock identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := platform.SetMockMode(cmd.Context(), prefsStore(), true); err != nil {
				return err
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).PrintMessage("Mock mode enabled")
			return nil
		},
	}
}

func newMockDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Force web mode even when init data is present",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := platform.SetMockMode(cmd.Context(), prefsStore(), false); err != nil {
				return err
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).PrintMessage("Mock mode disabled")
			return nil
		},
	}
}

func newMockClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the override so live signals decide",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := platform.ClearOverrides(cmd.Context(), prefsStore()); err != nil {
				return err
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).PrintMessage("Mock overrides cleared")
			return nil
		},
	}
}

func newMockListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the mock identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := prefsStore()
			set := platform.DefaultMockIdentities()

			mode, ok, err := store.Get(ctx, prefs.KeyMockTelegram)
			if err != nil {
				return err
			}
			if !ok {
				mode = "unset"
			}
			selected, err := platform.SelectedIdentity(ctx, store, set)
			if err != nil {
				return err
			}

			list := MockList{Mode: mode}
			for _, identity := range set {
				list.Identities = append(list.Identities, identityResult(identity, identity.ID == selected.ID))
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(list)
			return nil
		},
	}
}

func newMockSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <telegram-id>",
		Short: "Select the mock identity to impersonate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid telegram id %q", args[0])
			}
			identity, err := platform.SelectIdentity(cmd.Context(), prefsStore(), platform.DefaultMockIdentities(), id)
			if err != nil {
				return err
			}
			output(cmd.OutOrStdout(), cmd.ErrOrStderr()).Print(identityResult(identity, true))
			return nil
		},
	}
}
