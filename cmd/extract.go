package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shoplens/extractor/internal/app"
	"github.com/shoplens/extractor/internal/product"
)

func newExtractCmd() *cobra.Command {
	var (
		currencyHint string
		languageHint string
	)
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract one product page and print the record as JSON.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			record, err := a.Orchestrator.Extract(cmd.Context(), args[0], product.Hints{
				Currency: currencyHint,
				Language: languageHint,
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return fmt.Errorf("encode record: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&currencyHint, "currency-hint", "", "ISO 4217 currency to prefer when the page is ambiguous")
	cmd.Flags().StringVar(&languageHint, "language-hint", "", "BCP 47 language tag to prefer when the page is ambiguous")
	return cmd
}
