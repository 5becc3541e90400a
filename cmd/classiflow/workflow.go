package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgermill/classiflow/internal/cli"
	"github.com/ledgermill/classiflow/internal/engine"
	"github.com/ledgermill/classiflow/internal/orchestrator"
)

func workflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Run multi-step analysis workflows",
	}

	cmd.AddCommand(workflowRunCmd())
	cmd.AddCommand(workflowStatusCmd())

	return cmd
}

func workflowRunCmd() *cobra.Command {
	var (
		inputFile string
		userID    string
	)

	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a workflow (fullTransactionAnalysis, bulkProcessing, smartCategorization)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			txns, err := loadTransactions(inputFile)
			if err != nil {
				return err
			}

			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close(ctx)

			orch := orchestrator.New(orchestrator.Config{
				Engine:           svc.engine,
				DailyCostCeiling: viper.GetFloat64("orchestrator.daily_cost_ceiling"),
			})
			defer orch.Close()

			input := orchestrator.AgentInput{
				Profile:      profileFromConfig(),
				Transactions: txns,
				Options: engine.Options{
					BatchSize:            viper.GetInt("engine.batch_size"),
					MaxConcurrentBatches: viper.GetInt("engine.max_concurrent_batches"),
					ConfidenceThreshold:  viper.GetFloat64("engine.confidence_threshold"),
				},
			}

			task, err := orch.ExecuteWorkflowSync(ctx, args[0], userID, input)
			if err != nil {
				return err
			}

			fmt.Println(cli.Title(fmt.Sprintf("Workflow %s %s", args[0], task.Status)))
			fmt.Println(cli.KeyValue("Task", task.ID))
			fmt.Println(cli.KeyValue("Steps", len(task.Steps)))
			fmt.Println(cli.KeyValue("Estimated cost", fmt.Sprintf("$%.2f", task.EstimatedCost)))
			fmt.Println(cli.KeyValue("Actual cost", fmt.Sprintf("$%.2f", task.ActualCost)))
			for key := range task.Result {
				if key != "workflow" {
					fmt.Println(cli.KeyValue("Output", key))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "transactions file (.json, .ofx, .qfx)")
	cmd.Flags().StringVar(&userID, "user", "local", "user id recorded on the task")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func workflowStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show orchestrator agents, workflows, and spend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close(ctx)

			orch := orchestrator.New(orchestrator.Config{
				Engine:           svc.engine,
				DailyCostCeiling: viper.GetFloat64("orchestrator.daily_cost_ceiling"),
			})
			defer orch.Close()

			status := orch.GetStatus()
			fmt.Println(cli.Title("Orchestrator status"))
			fmt.Println(cli.KeyValue("Workflows", strings.Join(status.Workflows, ", ")))
			for agent, taskTypes := range status.Agents {
				fmt.Println(cli.KeyValue("Agent "+agent, strings.Join(taskTypes, ", ")))
			}
			fmt.Println(cli.KeyValue("Queue length", status.QueueLength))
			fmt.Println(cli.KeyValue("Active tasks", status.ActiveTasks))
			fmt.Println(cli.KeyValue("Spent today", fmt.Sprintf("$%.2f", status.SpentToday)))
			fmt.Println(cli.KeyValue("Daily ceiling", fmt.Sprintf("$%.2f", status.DailyCostCeiling)))
			return nil
		},
	}
}
