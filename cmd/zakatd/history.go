package main

import (
	"encoding/json"
	"fmt"
	"os"

	"ZakatSentinel/internal/app"
	"ZakatSentinel/internal/ledger"
	"ZakatSentinel/internal/numfmt"

	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the recorded balance history",
	RunE: func(_ *cobra.Command, _ []string) error {
		password, err := promptPassword("Master password: ")
		if err != nil {
			return err
		}
		factory, err := app.NewFactory(cfg)
		if err != nil {
			return err
		}
		defer factory.Close()

		runner, err := factory.Runner(password)
		if err != nil {
			return err
		}
		records, err := runner.History()
		if err != nil {
			return err
		}

		if historyJSON {
			return json.NewEncoder(os.Stdout).Encode(records)
		}
		if len(records) == 0 {
			fmt.Println("No history recorded yet.")
			return nil
		}
		for _, r := range ledger.SortByTimestamp(records) {
			if r.IsPaymentMarker() {
				fmt.Printf("%s  zakat paid\n", r.GregorianDate)
				continue
			}
			status := "below nisab"
			if r.AboveNisab {
				status = "above nisab"
			}
			fmt.Printf("%s  %s  %s  (Hijri %d/%02d, nisab %s)\n",
				r.GregorianDate,
				numfmt.AmountWithCurrency(r.TotalAssets, cfg.Currency.Reference),
				status,
				r.HijriYear, r.HijriMonth,
				numfmt.Amount(r.NisabThreshold))
		}
		return nil
	},
}

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Print the current consecutive-month count without recording anything",
	RunE: func(_ *cobra.Command, _ []string) error {
		password, err := promptPassword("Master password: ")
		if err != nil {
			return err
		}
		factory, err := app.NewFactory(cfg)
		if err != nil {
			return err
		}
		defer factory.Close()

		runner, err := factory.Runner(password)
		if err != nil {
			return err
		}
		streak, err := runner.CurrentStreak()
		if err != nil {
			return err
		}
		fmt.Printf("%d of 12 consecutive months above nisab\n", streak)
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print the history as JSON")
}
