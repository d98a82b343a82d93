package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the member credential for the restaurant backend",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthWhoamiCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var token string

	c := &cobra.Command{
		Use:   "login",
		Short: "Store a member bearer token after verifying it against the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			user, err := e.session.Login(cmd.Context(), token)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "logged in as %s (role=%s)\n", user.Username, user.Role)
			return nil
		},
	}
	c.Flags().StringVar(&token, "token", "", "bearer token issued by the restaurant backend")
	_ = c.MarkFlagRequired("token")
	return c
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored member credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.session.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "logged out")
			return nil
		},
	}
}

func newAuthWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the verified member identity, if any",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			user, ok := e.session.User()
			if !ok {
				fmt.Fprintln(os.Stdout, "guest (no valid credential stored)")
				return nil
			}
			fmt.Fprintf(os.Stdout, "%s (role=%s, phone=%s)\n", user.Username, user.Role, user.Phone)
			return nil
		},
	}
}
