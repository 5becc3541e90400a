package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgermill/classiflow/internal/cli"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache, coverage, and classification statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close(ctx)

			cacheStats := svc.engine.CacheStats()
			fmt.Println(cli.Title("Cache"))
			fmt.Println(cli.KeyValue("Entries", cacheStats.Size))
			fmt.Println(cli.KeyValue("Hits", cacheStats.Hits))
			fmt.Println(cli.KeyValue("Misses", cacheStats.Misses))
			fmt.Println(cli.KeyValue("Hit rate", fmt.Sprintf("%.1f%%", cacheStats.HitRate*100)))

			cov := svc.engine.CoverageStats()
			fmt.Println(cli.Title("Pattern coverage"))
			fmt.Println(cli.KeyValue("Merchant patterns", cov.MerchantPatterns))
			fmt.Println(cli.KeyValue("Category signatures", cov.CategorySignatures))
			fmt.Println(cli.KeyValue("Learned patterns", cov.LearnedPatterns))

			counts, err := svc.storage.CountBySource(ctx)
			if err != nil {
				return err
			}
			if len(counts) > 0 {
				fmt.Println(cli.Title("Stored classifications by source"))
				for source, count := range counts {
					fmt.Println(cli.KeyValue(source, count))
				}
			}
			return nil
		},
	}
}
