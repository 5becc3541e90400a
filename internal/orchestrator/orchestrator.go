package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ledgermill/classiflow/internal/common"
	"github.com/ledgermill/classiflow/internal/engine"
	"github.com/ledgermill/classiflow/internal/model"
)

// defaultDailyCostCeiling bounds estimated spend admitted per calendar day.
const defaultDailyCostCeiling = 50.0

// queueCapacity bounds the async task queue.
const queueCapacity = 128

// Config wires an Orchestrator.
type Config struct {
	Engine           *engine.Engine
	Logger           *slog.Logger
	DailyCostCeiling float64
}

// Status is a point-in-time report of orchestrator state.
type Status struct {
	Agents           map[string][]string `json:"agents"`
	Workflows        []string            `json:"workflows"`
	QueueLength      int                 `json:"queueLength"`
	ActiveTasks      int                 `json:"activeTasks"`
	CompletedTasks   int                 `json:"completedTasks"`
	SpentToday       float64             `json:"spentToday"`
	DailyCostCeiling float64             `json:"dailyCostCeiling"`
}

// costLedger tracks spend admitted today. Resets on day rollover.
type costLedger struct {
	day     time.Time
	spent   float64
	ceiling float64
}

// admit reserves estimated cost, failing when it would breach the ceiling.
func (l *costLedger) admit(estimated float64, now time.Time) error {
	today := now.Truncate(24 * time.Hour)
	if !l.day.Equal(today) {
		l.day = today
		l.spent = 0
	}
	if l.spent+estimated > l.ceiling {
		return fmt.Errorf("%w: spent %.2f + estimated %.2f exceeds %.2f",
			common.ErrCostCeilingExceeded, l.spent, estimated, l.ceiling)
	}
	l.spent += estimated
	return nil
}

// Orchestrator routes workflow and single-agent tasks through the shared
// engine. All external classifier calls go through the engine's limiter, so
// workflow fan-out and direct batch runs share one concurrency cap.
type Orchestrator struct {
	engine    *engine.Engine
	logger    *slog.Logger
	agents    map[string]Agent
	workflows map[string]WorkflowDefinition
	tasks     map[string]*model.OrchestratorTask
	queue     chan queuedTask
	ledger    costLedger
	wg        sync.WaitGroup
	mu        sync.Mutex
	closed    bool
}

type queuedTask struct {
	id    string
	input AgentInput
}

// New creates an orchestrator with the three built-in agents and the seeded
// workflow catalog, and starts the background worker.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DailyCostCeiling <= 0 {
		cfg.DailyCostCeiling = defaultDailyCostCeiling
	}
	if cfg.Engine == nil {
		cfg.Engine = engine.New(engine.Config{Logger: cfg.Logger})
	}

	o := &Orchestrator{
		engine:    cfg.Engine,
		logger:    cfg.Logger,
		agents:    make(map[string]Agent),
		workflows: seedWorkflows(),
		tasks:     make(map[string]*model.OrchestratorTask),
		queue:     make(chan queuedTask, queueCapacity),
		ledger:    costLedger{ceiling: cfg.DailyCostCeiling},
	}

	for _, agent := range []Agent{
		&categoryAgent{engine: cfg.Engine},
		&classificationAgent{engine: cfg.Engine},
		&taxAgent{engine: cfg.Engine},
	} {
		o.agents[agent.Type()] = agent
	}

	o.wg.Add(1)
	go o.worker()

	return o
}

// Close drains the queue and stops the worker.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	close(o.queue)
	o.wg.Wait()
}

// ExecuteWorkflow queues a named workflow and returns the pending task.
// Admission fails when the workflow is unknown or the estimated cost would
// breach the daily ceiling.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, name, userID string, input AgentInput) (*model.OrchestratorTask, error) {
	task, err := o.admitWorkflow(name, userID, input)
	if err != nil {
		return nil, err
	}

	select {
	case o.queue <- queuedTask{id: task.ID, input: input}:
	case <-ctx.Done():
		o.mu.Lock()
		task.Status = model.TaskFailed
		task.Error = ctx.Err().Error()
		o.mu.Unlock()
		return nil, ctx.Err()
	}

	o.logger.Info("workflow queued", "task_id", task.ID, "workflow", name, "user_id", userID, "estimated_cost", task.EstimatedCost)
	return o.taskCopy(task.ID), nil
}

// ExecuteWorkflowSync runs a workflow inline and returns the finished task.
func (o *Orchestrator) ExecuteWorkflowSync(ctx context.Context, name, userID string, input AgentInput) (*model.OrchestratorTask, error) {
	task, err := o.admitWorkflow(name, userID, input)
	if err != nil {
		return nil, err
	}

	o.runTask(ctx, task.ID, input)

	finished := o.taskCopy(task.ID)
	if finished.Status == model.TaskFailed {
		return finished, fmt.Errorf("workflow %s failed: %s", name, finished.Error)
	}
	return finished, nil
}

// ExecuteSingle runs one agent task inline, subject to the same admission
// control as workflows.
func (o *Orchestrator) ExecuteSingle(ctx context.Context, agentType, taskType, userID string, input AgentInput) (map[string]any, error) {
	o.mu.Lock()
	agent, ok := o.agents[agentType]
	if !ok {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", common.ErrAgentNotFound, agentType)
	}

	estimated := agent.EstimateCost(taskType, len(input.Transactions))
	if err := o.ledger.admit(estimated, time.Now()); err != nil {
		o.mu.Unlock()
		return nil, err
	}

	task := &model.OrchestratorTask{
		ID:            uuid.NewString(),
		UserID:        userID,
		Kind:          model.KindSingle,
		Status:        model.TaskProcessing,
		CreatedAt:     time.Now(),
		StartedAt:     time.Now(),
		EstimatedCost: estimated,
	}
	o.tasks[task.ID] = task
	o.mu.Unlock()

	output, err := agent.Execute(ctx, taskType, input)

	o.mu.Lock()
	defer o.mu.Unlock()
	task.CompletedAt = time.Now()
	task.ActualCost = estimated
	if err != nil {
		task.Status = model.TaskFailed
		task.Error = err.Error()
		return nil, err
	}
	task.Status = model.TaskCompleted
	task.Result = output
	return output, nil
}

// CancelTask cancels a task that has not started processing yet.
func (o *Orchestrator) CancelTask(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	task, ok := o.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, common.ErrNotFound)
	}
	if task.Status != model.TaskPending {
		return fmt.Errorf("task %s in status %s: %w", id, task.Status, common.ErrTaskNotCancellable)
	}

	task.Status = model.TaskCancelled
	task.CompletedAt = time.Now()
	return nil
}

// Task returns a copy of a task by id.
func (o *Orchestrator) Task(id string) (*model.OrchestratorTask, error) {
	o.mu.Lock()
	_, ok := o.tasks[id]
	o.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, common.ErrNotFound)
	}
	return o.taskCopy(id), nil
}

// GetStatus reports agents, queue depth, task counts, and spend.
func (o *Orchestrator) GetStatus() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	status := Status{
		Agents:           make(map[string][]string, len(o.agents)),
		QueueLength:      len(o.queue),
		SpentToday:       o.ledger.spent,
		DailyCostCeiling: o.ledger.ceiling,
	}
	for name, agent := range o.agents {
		status.Agents[name] = agent.TaskTypes()
	}
	for name := range o.workflows {
		status.Workflows = append(status.Workflows, name)
	}
	sort.Strings(status.Workflows)
	for _, task := range o.tasks {
		switch task.Status {
		case model.TaskPending, model.TaskProcessing:
			status.ActiveTasks++
		case model.TaskCompleted:
			status.CompletedTasks++
		}
	}
	return status
}

// admitWorkflow validates the workflow, charges the ledger, and registers a
// pending task with a copy of the workflow's steps.
func (o *Orchestrator) admitWorkflow(name, userID string, input AgentInput) (*model.OrchestratorTask, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	def, ok := o.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrWorkflowNotFound, name)
	}

	var estimated float64
	for _, step := range def.Steps {
		agent, ok := o.agents[step.AgentType]
		if !ok {
			return nil, fmt.Errorf("%w: %s (workflow %s)", common.ErrAgentNotFound, step.AgentType, name)
		}
		estimated += agent.EstimateCost(step.TaskType, len(input.Transactions))
	}

	if err := o.ledger.admit(estimated, time.Now()); err != nil {
		return nil, err
	}

	steps := make([]model.WorkflowTask, len(def.Steps))
	for i, step := range def.Steps {
		step.ID = uuid.NewString()
		step.Status = model.TaskPending
		step.CreatedAt = time.Now()
		steps[i] = step
	}

	task := &model.OrchestratorTask{
		ID:            uuid.NewString(),
		UserID:        userID,
		Kind:          model.KindWorkflow,
		Status:        model.TaskPending,
		CreatedAt:     time.Now(),
		Steps:         steps,
		Parallel:      def.Parallel,
		EstimatedCost: estimated,
		Result:        map[string]any{"workflow": name},
	}
	o.tasks[task.ID] = task
	return task, nil
}

// worker drains the async queue.
func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for item := range o.queue {
		o.runTask(context.Background(), item.id, item.input)
	}
}

// runTask executes a queued workflow task unless it was cancelled while
// pending.
func (o *Orchestrator) runTask(ctx context.Context, id string, input AgentInput) {
	o.mu.Lock()
	task, ok := o.tasks[id]
	if !ok || task.Status != model.TaskPending {
		o.mu.Unlock()
		return
	}
	task.Status = model.TaskProcessing
	task.StartedAt = time.Now()
	parallel := task.Parallel
	steps := make([]model.WorkflowTask, len(task.Steps))
	copy(steps, task.Steps)
	o.mu.Unlock()

	result, actualCost, err := o.runSteps(ctx, steps, input, parallel)

	o.mu.Lock()
	defer o.mu.Unlock()
	task.CompletedAt = time.Now()
	task.ActualCost = actualCost
	if err != nil {
		task.Status = model.TaskFailed
		task.Error = err.Error()
		o.logger.Error("workflow failed", "task_id", id, "error", err)
		return
	}
	for k, v := range result {
		task.Result[k] = v
	}
	task.Status = model.TaskCompleted
	o.logger.Info("workflow completed", "task_id", id, "actual_cost", actualCost, "duration_ms", task.CompletedAt.Sub(task.StartedAt).Milliseconds())
}

// runSteps executes workflow steps in dependency order. Each pass runs every
// step whose dependencies are complete, sequentially or concurrently per the
// workflow's parallel flag; a pass that finds no runnable step while work
// remains is a deadlock. The iteration cap guards against cycles that the
// ready-set check might miss.
func (o *Orchestrator) runSteps(ctx context.Context, steps []model.WorkflowTask, input AgentInput, parallel bool) (map[string]any, float64, error) {
	completed := make(map[string]bool, len(steps))
	outputs := make(map[string]any, len(steps))
	var actualCost float64

	maxIterations := 2 * len(steps)
	for iteration := 0; len(completed) < len(steps); iteration++ {
		if iteration >= maxIterations {
			return nil, actualCost, fmt.Errorf("%w: iteration cap reached with steps %s",
				common.ErrWorkflowDeadlock, strings.Join(stuckSteps(steps, completed), "; "))
		}

		ready := readySteps(steps, completed)
		if len(ready) == 0 {
			return nil, actualCost, fmt.Errorf("%w: unsatisfiable dependencies for steps %s",
				common.ErrWorkflowDeadlock, strings.Join(stuckSteps(steps, completed), "; "))
		}

		waveOutputs, waveCost, err := o.runWave(ctx, ready, input, outputs, parallel)
		actualCost += waveCost
		if err != nil {
			return nil, actualCost, err
		}

		for taskType, output := range waveOutputs {
			outputs[taskType] = output
			completed[taskType] = true
		}
	}

	return outputs, actualCost, nil
}

// runWave executes one ready set. Steps in a ready set never depend on each
// other, so a parallel workflow may run them concurrently; all of them finish
// before readiness is re-evaluated.
func (o *Orchestrator) runWave(ctx context.Context, ready []model.WorkflowTask, input AgentInput, upstream map[string]any, parallel bool) (map[string]any, float64, error) {
	waveOutputs := make(map[string]any, len(ready))
	var waveCost float64

	// Snapshot upstream outputs so concurrent steps read a stable map.
	upstreamCopy := make(map[string]any, len(upstream))
	for k, v := range upstream {
		upstreamCopy[k] = v
	}

	if !parallel || len(ready) == 1 {
		for _, step := range ready {
			agent, ok := o.agents[step.AgentType]
			if !ok {
				return waveOutputs, waveCost, fmt.Errorf("%w: %s", common.ErrAgentNotFound, step.AgentType)
			}

			stepInput := input
			stepInput.Upstream = upstreamCopy

			output, err := agent.Execute(ctx, step.TaskType, stepInput)
			if err != nil {
				return waveOutputs, waveCost, fmt.Errorf("step %s: %w", step.TaskType, err)
			}

			waveCost += agent.EstimateCost(step.TaskType, len(input.Transactions))
			waveOutputs[step.TaskType] = output
		}
		return waveOutputs, waveCost, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, step := range ready {
		step := step
		agent, ok := o.agents[step.AgentType]
		if !ok {
			return waveOutputs, waveCost, fmt.Errorf("%w: %s", common.ErrAgentNotFound, step.AgentType)
		}

		g.Go(func() error {
			stepInput := input
			stepInput.Upstream = upstreamCopy

			output, err := agent.Execute(gctx, step.TaskType, stepInput)
			if err != nil {
				return fmt.Errorf("step %s: %w", step.TaskType, err)
			}

			mu.Lock()
			waveCost += agent.EstimateCost(step.TaskType, len(input.Transactions))
			waveOutputs[step.TaskType] = output
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return waveOutputs, waveCost, err
	}
	return waveOutputs, waveCost, nil
}

// readySteps returns incomplete steps whose dependencies are all complete,
// ordered by priority.
func readySteps(steps []model.WorkflowTask, completed map[string]bool) []model.WorkflowTask {
	var ready []model.WorkflowTask
	for _, step := range steps {
		if completed[step.TaskType] {
			continue
		}
		ok := true
		for _, dep := range step.DependsOn {
			if !completed[dep] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, step)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool { return ready[i].Priority < ready[j].Priority })
	return ready
}

// stuckSteps describes each incomplete step together with its unmet
// dependencies for the deadlock diagnostic.
func stuckSteps(steps []model.WorkflowTask, completed map[string]bool) []string {
	var stuck []string
	for _, step := range steps {
		if completed[step.TaskType] {
			continue
		}
		var unmet []string
		for _, dep := range step.DependsOn {
			if !completed[dep] {
				unmet = append(unmet, dep)
			}
		}
		if len(unmet) == 0 {
			stuck = append(stuck, step.TaskType)
			continue
		}
		stuck = append(stuck, fmt.Sprintf("%s (waiting on %s)", step.TaskType, strings.Join(unmet, ", ")))
	}
	return stuck
}

// taskCopy returns a defensive copy so callers never share the orchestrator's
// mutable task state.
func (o *Orchestrator) taskCopy(id string) *model.OrchestratorTask {
	o.mu.Lock()
	defer o.mu.Unlock()

	task, ok := o.tasks[id]
	if !ok {
		return nil
	}

	cp := *task
	cp.Steps = make([]model.WorkflowTask, len(task.Steps))
	copy(cp.Steps, task.Steps)
	cp.Result = make(map[string]any, len(task.Result))
	for k, v := range task.Result {
		cp.Result[k] = v
	}
	return &cp
}
