package main

import (
	"fmt"

	"ZakatSentinel/internal/config"
	"ZakatSentinel/internal/model"

	"github.com/spf13/cobra"
)

var (
	overrideMonths  int
	overrideAsOf    string
	overrideDisable bool
)

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Set or clear the year progress override for pre-tracking months",
	Long: "The override credits Hijri months that were above nisab before " +
		"tracking started. It only ever extends a live streak: once the " +
		"chain breaks, the credited months no longer count.",
	RunE: func(_ *cobra.Command, _ []string) error {
		password, err := promptPassword("Master password: ")
		if err != nil {
			return err
		}

		profile, err := config.LoadProfile(cfg.ProfilePath(), password)
		if err != nil {
			return err
		}

		if overrideDisable {
			profile.YearProgress = nil
		} else {
			profile.YearProgress = &model.YearProgressOverride{
				Enabled:          true,
				MonthsAboveNisab: overrideMonths,
				AsOfHijriDate:    overrideAsOf,
			}
		}
		if err := config.SaveProfile(cfg.ProfilePath(), password, profile); err != nil {
			return err
		}

		if overrideDisable {
			fmt.Println("Year progress override cleared.")
		} else {
			fmt.Printf("Year progress override set: %d prior months above nisab.\n", overrideMonths)
		}
		return nil
	},
}

func init() {
	overrideCmd.Flags().IntVar(&overrideMonths, "months", 0, "prior consecutive months above nisab (0-11)")
	overrideCmd.Flags().StringVar(&overrideAsOf, "as-of", "", "Hijri date the count refers to, e.g. 01.07.1446")
	overrideCmd.Flags().BoolVar(&overrideDisable, "disable", false, "clear the override")
}
