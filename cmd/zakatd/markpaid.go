package main

import (
	"fmt"

	"ZakatSentinel/internal/app"

	"github.com/spf13/cobra"
)

var markPaidDate string

var markPaidCmd = &cobra.Command{
	Use:   "mark-paid",
	Short: "Record a zakat payment, resetting the consecutive-month count",
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
		if err := runner.RecordPayment(markPaidDate); err != nil {
			return err
		}
		fmt.Println("Payment recorded.")
		return nil
	},
}

func init() {
	markPaidCmd.Flags().StringVar(&markPaidDate, "date", "", "payment date as DD.MM.YYYY (default today)")
}
