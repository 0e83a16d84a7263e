// Package cmd defines the extractor command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shoplens/extractor/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extractor",
		Short: "Extract structured product data from e-commerce pages.",
		Long: `extractor ingests a product page URL and emits a normalized,
signed product record: title, sanitized description, decimal price with ISO
currency, and display-ready images. Run it as a one-shot CLI ("extract") or
as an HTTP service ("serve").`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/extractor, $HOME/.extractor)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newExtractCmd())
	return cmd
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
