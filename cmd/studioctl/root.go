package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/brilliantaksan/brilliantaksan-web/internal/cfg"
	"github.com/brilliantaksan/brilliantaksan-web/internal/otelx"
	"github.com/brilliantaksan/brilliantaksan-web/internal/studioclient"
	v "github.com/brilliantaksan/brilliantaksan-web/internal/version"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	server  string
	session string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "studioctl",
		Short:         "Edit site content and upload media through the admin API",
		Version:       v.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// flags win over the environment, which wins over .env
			_ = godotenv.Load()
			if !cmd.Flags().Changed("server") {
				if s := os.Getenv(cfg.EnvPrefix + "STUDIO_SERVER"); s != "" {
					g.server = s
				}
			}
			if !cmd.Flags().Changed("session") {
				g.session = os.Getenv(cfg.EnvPrefix + "STUDIO_SESSION")
			}
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.server, "server", "http://localhost:8080", "site base url (env "+cfg.EnvPrefix+"STUDIO_SERVER)")
	pf.StringVar(&g.session, "session", "", "admin session cookie value (env "+cfg.EnvPrefix+"STUDIO_SESSION)")
	pf.DurationVar(&g.timeout, "timeout", 60*time.Second, "per-request timeout")

	root.AddCommand(
		newLoginCmd(g),
		newContentCmd(g),
		newVideoCmd(g),
		newImageCmd(g),
	)
	return root
}

func (g *globals) client() (*studioclient.Client, error) {
	return g.clientWithTimeout(g.timeout)
}

// clientWithTimeout builds a client; 0 means no overall deadline, for
// uploads that stream large files.
func (g *globals) clientWithTimeout(d time.Duration) (*studioclient.Client, error) {
	return studioclient.New(studioclient.Options{
		BaseURL:    g.server,
		Session:    g.session,
		HTTPClient: otelx.HTTPClient("studio", d),
	})
}
