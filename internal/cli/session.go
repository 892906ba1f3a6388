package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <token>",
		Short: "Store a bearer token for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			cred, err := a.orch.Login(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			who := cred.Subject
			if who == "" {
				who = "token"
			}
			if !cred.ExpiresAt.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s until %s\n", who, cred.ExpiresAt.Format("2006-01-02 15:04"))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", who)
			return nil
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			a.orch.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}
