package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgermill/classiflow/internal/cli"
	"github.com/ledgermill/classiflow/internal/engine"
)

func recurringCmd() *cobra.Command {
	var inputFile string

	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Detect recurring bills in a transaction file",
		RunE: func(_ *cobra.Command, _ []string) error {
			txns, err := loadTransactions(inputFile)
			if err != nil {
				return err
			}

			candidates := engine.DetectRecurringBills(txns, nil)
			if len(candidates) == 0 {
				fmt.Println(cli.Warning("no recurring bills detected"))
				return nil
			}

			fmt.Println(cli.Title(fmt.Sprintf("%d recurring bills detected", len(candidates))))
			for _, c := range candidates {
				fmt.Printf("  %-40s %-10s $%8.2f  confidence %.2f  (%d transactions)\n",
					c.MerchantSignature, c.Frequency, c.AverageAmount, c.Confidence, len(c.TransactionIDs))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "transactions file (.json, .ofx, .qfx)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
