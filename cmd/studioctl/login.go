package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brilliantaksan/brilliantaksan-web/internal/cfg"
)

func newLoginCmd(g *globals) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange an identity token for an admin session",
		Long: "Exchange an identity provider ID token for an admin session and print the\n" +
			"export line for " + cfg.EnvPrefix + "STUDIO_SESSION.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			email, err := c.Login(cmd.Context(), token)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "signed in as %s\n", email)
			fmt.Fprintf(cmd.OutOrStdout(), "export %sSTUDIO_SESSION=%s\n", cfg.EnvPrefix, c.Session())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "access-token", "", "identity provider ID token")
	_ = cmd.MarkFlagRequired("access-token")
	return cmd
}
