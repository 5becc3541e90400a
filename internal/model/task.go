package model

import "time"

// TaskStatus tracks a task through its lifecycle. Completed, failed and
// cancelled are terminal; cancelled is reachable only from pending.
type TaskStatus string

// Task status constants.
const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
	TaskCancelled  TaskStatus = "cancelled"
)

// TaskKind distinguishes the shapes of orchestrator work.
type TaskKind string

const (
	// KindSingle is one agent task.
	KindSingle TaskKind = "single"
	// KindWorkflow is a dependency-ordered list of agent tasks.
	KindWorkflow TaskKind = "workflow"
	// KindBatch is a set of independent agent tasks grouped per agent.
	KindBatch TaskKind = "batch"
)

// WorkflowTask is one step of a workflow. Step state transitions are owned
// exclusively by the orchestrator.
type WorkflowTask struct {
	CreatedAt time.Time
	ID        string
	AgentType string
	TaskType  string
	Status    TaskStatus
	DependsOn []string
	Priority  int
}

// OrchestratorTask is a queued unit of orchestrator work. A task reaches at
// most one terminal status; its accumulated cost feeds the daily ledger.
type OrchestratorTask struct {
	CreatedAt     time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
	ID            string
	UserID        string
	Kind          TaskKind
	Status        TaskStatus
	Error         string
	Steps         []WorkflowTask
	Result        map[string]any
	Priority      int
	EstimatedCost float64
	ActualCost    float64
	Parallel      bool
}
