package orchestrator

import "github.com/ledgermill/classiflow/internal/model"

// WorkflowDefinition names an ordered set of agent tasks. DependsOn entries
// reference other steps by task type. Parallel workflows run each ready set
// concurrently; sequential workflows run it in priority order.
type WorkflowDefinition struct {
	Name     string
	Parallel bool
	Steps    []model.WorkflowTask
}

// seedWorkflows returns the built-in workflow catalog.
func seedWorkflows() map[string]WorkflowDefinition {
	return map[string]WorkflowDefinition{
		"fullTransactionAnalysis": {
			Name:     "fullTransactionAnalysis",
			Parallel: true,
			Steps: []model.WorkflowTask{
				{TaskType: "classifyTransactions", AgentType: "classification", Priority: 1},
				{TaskType: "detectRecurringBills", AgentType: "classification", Priority: 2, DependsOn: []string{"classifyTransactions"}},
				{TaskType: "analyzeTaxDeductions", AgentType: "tax", Priority: 2, DependsOn: []string{"classifyTransactions"}},
			},
		},
		"bulkProcessing": {
			Name: "bulkProcessing",
			Steps: []model.WorkflowTask{
				{TaskType: "classifyTransactions", AgentType: "classification", Priority: 1},
			},
		},
		"smartCategorization": {
			Name: "smartCategorization",
			Steps: []model.WorkflowTask{
				{TaskType: "suggestCategories", AgentType: "category", Priority: 1},
				{TaskType: "categorizeWithVocabulary", AgentType: "category", Priority: 2, DependsOn: []string{"suggestCategories"}},
			},
		},
	}
}
