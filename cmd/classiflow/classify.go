package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgermill/classiflow/internal/cli"
	"github.com/ledgermill/classiflow/internal/engine"
)

func classifyCmd() *cobra.Command {
	var (
		inputFile   string
		outputFile  string
		categories  []string
		categorize  bool
		detectBills bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify transactions from a JSON or OFX file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			txns, err := loadTransactions(inputFile)
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				fmt.Println(cli.Warning("no transactions found in %s", inputFile))
				return nil
			}

			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close(ctx)

			opts := engine.Options{
				Profile:              profileFromConfig(),
				BatchSize:            viper.GetInt("engine.batch_size"),
				MaxConcurrentBatches: viper.GetInt("engine.max_concurrent_batches"),
				ConfidenceThreshold:  viper.GetFloat64("engine.confidence_threshold"),
				CategorizationMode:   categorize,
				SelectedCategories:   categories,
				EnableBillDetection:  detectBills,
			}

			fmt.Println(cli.Title(fmt.Sprintf("Classifying %d transactions", len(txns))))

			batch, err := svc.engine.ClassifyBatch(ctx, txns, opts)
			if err != nil {
				return err
			}

			bar := progressbar.Default(int64(len(batch.Results)), "saving results")
			if err := svc.storage.SaveResults(ctx, batch.Results); err != nil {
				return fmt.Errorf("failed to save results: %w", err)
			}
			_ = bar.Finish()

			printBatchSummary(batch)

			if outputFile != "" {
				if err := writeJSON(outputFile, batch); err != nil {
					return err
				}
				fmt.Println(cli.Success("results written to %s", outputFile))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "transactions file (.json, .ofx, .qfx)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "write full results as JSON")
	cmd.Flags().BoolVar(&categorize, "categorize", false, "categorization mode: skip patterns, classify against a vocabulary")
	cmd.Flags().BoolVar(&detectBills, "detect-bills", false, "run recurring-bill detection over the classified results")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "fixed category vocabulary for categorization mode")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func printBatchSummary(batch engine.BatchResult) {
	c := batch.Costs
	fmt.Println(cli.Title("Summary"))
	fmt.Println(cli.KeyValue("Transactions", c.TotalTransactions))
	fmt.Println(cli.KeyValue("Pattern matches", c.ReferenceResolved))
	fmt.Println(cli.KeyValue("Cache hits", c.CacheHits))
	fmt.Println(cli.KeyValue("AI classified", c.AIClassified))
	fmt.Println(cli.KeyValue("Fallbacks", c.FallbackResults))
	fmt.Println(cli.KeyValue("AI calls", c.AICallsMade))
	fmt.Println(cli.KeyValue("Estimated cost", fmt.Sprintf("$%.2f", c.EstimatedCost)))
	fmt.Println(cli.KeyValue("Estimated savings", fmt.Sprintf("$%.2f", c.EstimatedSavings)))
	fmt.Println(cli.KeyValue("Efficiency", fmt.Sprintf("%d%%", c.EfficiencyRating)))
	fmt.Println(cli.KeyValue("Avg confidence", fmt.Sprintf("%.2f", batch.Insights.AverageConfidence)))

	if len(batch.Insights.TopCategories) > 0 {
		fmt.Println(cli.Title("Top categories"))
		for _, ct := range batch.Insights.TopCategories {
			fmt.Printf("  %-30s %4d  $%.2f\n", ct.Category, ct.Count, ct.Total)
		}
	}
	if len(batch.RecurringBills) > 0 {
		fmt.Println(cli.Title("Recurring bills"))
		for _, c := range batch.RecurringBills {
			fmt.Printf("  %-40s %-10s $%8.2f  confidence %.2f\n",
				c.MerchantSignature, c.Frequency, c.AverageAmount, c.Confidence)
		}
	}
	for _, rec := range batch.Insights.Recommendations {
		fmt.Println(cli.Warning("%s", rec))
	}
}
