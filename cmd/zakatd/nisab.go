package main

import (
	"fmt"

	"ZakatSentinel/internal/app"
	"ZakatSentinel/internal/model"
	"ZakatSentinel/internal/numfmt"

	"github.com/spf13/cobra"
)

var nisabCmd = &cobra.Command{
	Use:   "nisab",
	Short: "Resolve and print the current nisab threshold",
	RunE: func(cmd *cobra.Command, _ []string) error {
		factory, err := app.NewFactory(cfg)
		if err != nil {
			return err
		}
		defer factory.Close()

		res := factory.Resolver.Resolve(cmd.Context())
		fmt.Printf("Nisab: %s\n", numfmt.AmountWithCurrency(res.Value, cfg.Currency.Reference))
		if res.Source == model.NisabSourceAuthoritative {
			fmt.Printf("Source: %s\n", res.URL)
		} else {
			fmt.Println("Source: configured fallback (live value unavailable)")
		}
		return nil
	},
}
