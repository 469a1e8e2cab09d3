package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"local-auth/internal/service"
)

type storeRunner func(run func(cmd *cobra.Command, store *service.AuthStore, args []string) error) func(*cobra.Command, []string) error

var errNotLoggedIn = errors.New("not logged in")

func newRegisterCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "register NAME EMAIL PASSWORD",
		Short: "Register a user and log them in",
		Args:  cobra.ExactArgs(3),
		RunE: withStore(func(cmd *cobra.Command, store *service.AuthStore, args []string) error {
			user, err := store.Register(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s <%s>\n", user.Name, user.Email)
			return nil
		}),
	}
}

func newLoginCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "login EMAIL PASSWORD",
		Short: "Log in as a registered user",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, store *service.AuthStore, args []string) error {
			user, err := store.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s <%s>\n", user.Name, user.Email)
			return nil
		}),
	}
}

func newLogoutCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *service.AuthStore, _ []string) error {
			store.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		}),
	}
}

func newWhoamiCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *service.AuthStore, _ []string) error {
			user, ok := store.CurrentUser()
			if !ok {
				return errNotLoggedIn
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.Name, user.Email)
			return nil
		}),
	}
}
