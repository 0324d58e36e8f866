package main

import (
	"encoding/json"
	"fmt"
	"os"

	"ZakatSentinel/internal/app"
	"ZakatSentinel/internal/mask"
	"ZakatSentinel/internal/model"
	"ZakatSentinel/internal/numfmt"

	"github.com/spf13/cobra"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis cycle now and print the verdict",
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		verdict, err := runner.RunAnalysis(cmd.Context(), func(source, stage string, percent int) {
			if source != "" {
				fmt.Fprintf(os.Stderr, "[%3d%%] %s: %s\n", percent, source, stage)
			} else {
				fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", percent, stage)
			}
		})
		if err != nil {
			return err
		}

		if analyzeJSON {
			return json.NewEncoder(os.Stdout).Encode(verdict)
		}
		printVerdict(verdict)
		return nil
	},
}

func printVerdict(v model.Verdict) {
	currency := cfg.Currency.Reference

	fmt.Printf("Observation date:   %s (Hijri %d/%02d)\n", v.ObservationDate, v.HijriYear, v.HijriMonth)
	for _, r := range v.Readings {
		if !r.Found {
			fmt.Printf("  %s %s (%s): no statement found\n", r.Source, mask.Account(r.Account), r.Currency)
			continue
		}
		line := fmt.Sprintf("  %s %s: %s", r.Source, mask.Account(r.Account), numfmt.AmountWithCurrency(r.Balance, r.Currency))
		if r.Currency != r.ConvertedTo && r.ConvertedTo != "" {
			line += fmt.Sprintf(" = %s", numfmt.AmountWithCurrency(r.Converted, r.ConvertedTo))
		}
		fmt.Println(line)
	}
	fmt.Printf("Bank balance:       %s\n", numfmt.AmountWithCurrency(v.BankBalance, currency))
	if !v.AdditionalAssets.IsZero() {
		fmt.Printf("Additional assets:  %s\n", numfmt.AmountWithCurrency(v.AdditionalAssets, currency))
	}
	fmt.Printf("Total assets:       %s\n", numfmt.AmountWithCurrency(v.TotalAssets, currency))
	fmt.Printf("Nisab threshold:    %s (%s)\n", numfmt.AmountWithCurrency(v.NisabThreshold, currency), v.NisabSource)
	fmt.Printf("Above nisab:        %v\n", v.AboveNisab)
	fmt.Printf("Consecutive months: %d of 12\n", v.ConsecutiveMonthsAboveNisab)
	if v.ZakatDue {
		fmt.Printf("\nZAKAT IS DUE: %s\n", numfmt.AmountWithCurrency(v.ZakatAmount, currency))
		fmt.Println("Run `zakatd mark-paid` after paying to reset the cycle.")
	} else {
		fmt.Println("\nZakat is not due yet.")
	}
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the verdict as JSON")
}
