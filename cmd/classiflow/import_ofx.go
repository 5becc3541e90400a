package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ledgermill/classiflow/internal/cli"
	"github.com/ledgermill/classiflow/internal/model"
	ofxparser "github.com/ledgermill/classiflow/internal/ofx"
)

func importCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "import <file.ofx>",
		Short: "Convert an OFX/QFX export to classifiable JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			txns, err := ofxparser.NewParser().ParseFile(f)
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				fmt.Println(cli.Warning("no transactions found in %s", args[0]))
				return nil
			}

			bar := progressbar.Default(int64(len(txns)), "importing")
			cleaned := make([]model.Transaction, 0, len(txns))
			for i, txn := range txns {
				if txn.ID == "" {
					txn.ID = fmt.Sprintf("ofx-%d", i+1)
				}
				cleaned = append(cleaned, txn)
				_ = bar.Add(1)
			}

			if err := writeJSON(outputFile, cleaned); err != nil {
				return err
			}
			if outputFile != "" {
				fmt.Println(cli.Success("imported %d transactions to %s", len(cleaned), outputFile))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output JSON file (default: stdout)")
	return cmd
}
