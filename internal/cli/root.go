// Package cli drives the storefront core headlessly from the command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-storefront/internal/config"
)

type rootOptions struct {
	configFile string
	apiURL     string
	logLevel   string
	sessionDir string
}

func (o *rootOptions) load() (config.Config, error) {
	var flags config.Layer
	if o.apiURL != "" {
		flags.API.BaseURL = &o.apiURL
	}
	if o.logLevel != "" {
		flags.LogLevel = &o.logLevel
	}
	if o.sessionDir != "" {
		flags.SessionDir = &o.sessionDir
	}
	return config.Load(config.Options{
		File:   o.configFile,
		DotEnv: []string{".env"},
		Flags:  flags,
	})
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Headless storefront client",
		Long: `storefront drives the storefront client core from a terminal.

It keeps the session between runs, edits store profiles (including the
signed-URL logo upload), browses products and adds sizes to the bag.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "API base URL (overrides config and STOREFRONT_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level")
	cmd.PersistentFlags().StringVar(&opts.sessionDir, "session-dir", "", "directory holding the saved session")

	cmd.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newStoreCmd(opts),
		newProductCmd(opts),
		newBagCmd(opts),
		newDevserverCmd(opts),
	)
	return cmd
}
