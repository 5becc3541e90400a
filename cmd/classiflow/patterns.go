package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgermill/classiflow/internal/cli"
	"github.com/ledgermill/classiflow/internal/model"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and manage the pattern store",
	}

	cmd.AddCommand(patternsStatsCmd())
	cmd.AddCommand(patternsExportCmd())
	cmd.AddCommand(patternsImportCmd())
	cmd.AddCommand(patternsLearnCmd())

	return cmd
}

func patternsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pattern store coverage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close(ctx)

			cov := svc.engine.CoverageStats()
			fmt.Println(cli.Title("Pattern store coverage"))
			fmt.Println(cli.KeyValue("Merchant patterns", cov.MerchantPatterns))
			fmt.Println(cli.KeyValue("Category signatures", cov.CategorySignatures))
			fmt.Println(cli.KeyValue("Learned patterns", cov.LearnedPatterns))
			fmt.Println(cli.KeyValue("High confidence (>0.8)", cov.HighConfidence))
			fmt.Println(cli.KeyValue("Medium confidence (0.6-0.8)", cov.MediumConfidence))
			fmt.Println(cli.KeyValue("Low confidence (<=0.6)", cov.LowConfidence))
			return nil
		},
	}
}

func patternsExportCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export patterns, signatures, and recent learning events as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close(ctx)

			data, err := svc.store.Export()
			if err != nil {
				return err
			}
			if outputFile == "" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(outputFile, data, 0600); err != nil {
				return fmt.Errorf("failed to write %s: %w", outputFile, err)
			}
			fmt.Println(cli.Success("patterns exported to %s", outputFile))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func patternsImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Replace the pattern store with an exported snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close(ctx)

			if err := svc.store.Import(data); err != nil {
				return err
			}
			cov := svc.store.Coverage()
			fmt.Println(cli.Success("imported %d patterns and %d signatures", cov.MerchantPatterns, cov.CategorySignatures))
			return nil
		},
	}
	return cmd
}

func patternsLearnCmd() *cobra.Command {
	var (
		txnID       string
		description string
		amount      float64
		corr        model.Correction
	)

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Record a corrected classification so future lookups match it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close(ctx)

			txn := model.Transaction{ID: txnID, Description: description, Amount: amount}
			svc.engine.RecordFeedback(txn, corr, model.ClassificationResult{})

			if err := svc.storage.AppendLearningEvent(ctx, model.LearningEvent{
				TransactionID: txnID,
				Description:   description,
				Amount:        amount,
				Correction:    corr,
			}); err != nil {
				return err
			}

			fmt.Println(cli.Success("correction recorded for %q -> %s", description, corr.Category))
			return nil
		},
	}

	cmd.Flags().StringVar(&txnID, "id", "", "transaction id")
	cmd.Flags().StringVar(&description, "description", "", "transaction description")
	cmd.Flags().Float64Var(&amount, "amount", 0, "transaction amount")
	cmd.Flags().StringVar(&corr.Category, "category", "", "corrected category")
	cmd.Flags().StringVar(&corr.Subcategory, "subcategory", "", "corrected subcategory")
	cmd.Flags().StringVar(&corr.TaxCategory, "tax-category", "", "corrected tax category")
	cmd.Flags().BoolVar(&corr.IsTaxDeductible, "tax-deductible", false, "mark as tax deductible")
	cmd.Flags().Float64Var(&corr.BusinessUsePercentage, "business-use", 0, "business use percentage")
	cmd.Flags().BoolVar(&corr.IsRecurring, "recurring", false, "mark as a recurring bill")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}
