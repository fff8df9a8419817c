package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/meridianai/taskforge/core"
	"github.com/meridianai/taskforge/dag"
	"github.com/meridianai/taskforge/store"
	"github.com/meridianai/taskforge/telemetry"
	"github.com/meridianai/taskforge/template"
)

// RunTask runs instruction to completion and synthesizes a T conforming to
// outputSchemaDescription. It guarantees the Manager's store is saved
// exactly once, on every exit path, before returning - success, fatal
// error, or early return (spec.md §5's persistence guarantee) - mirroring
// the original's run_task wrapper around run_task_core.
func RunTask[T any](ctx context.Context, m *Manager, instruction, outputSchemaDescription string) (T, error) {
	var zero T

	agentCtx := NewContext()
	agentCtx.AppendHistory(fmt.Sprintf("User Instruction: %s", instruction))
	ctx = core.ContextWithTraceID(ctx, agentCtx.TraceID)

	raw, runErr := m.runTaskCore(ctx, instruction, outputSchemaDescription, agentCtx)

	m.persist(ctx, agentCtx)

	if runErr != nil {
		return zero, runErr
	}

	var result T
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return zero, core.NewFrameworkError("Manager.RunTask", "synthesis", agentCtx.TraceID,
			"synthesized output did not match the requested type", fmt.Errorf("%w: %v", core.ErrSynthesisParse, err))
	}
	return result, nil
}

func (m *Manager) persist(ctx context.Context, agentCtx *Context) {
	m.logger.InfoWithContext(ctx, "persisting context", map[string]interface{}{"trace_id": agentCtx.TraceID})
	rec := &store.Record{
		TraceID:    agentCtx.TraceID,
		History:    agentCtx.HistoryLines(),
		SharedData: agentCtx.Artifacts(),
	}
	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.ErrorWithContext(ctx, "context save failed", map[string]interface{}{
			"trace_id": agentCtx.TraceID,
			"error":    err.Error(),
		})
	}
}

// runTaskCore implements §4.5-§4.12's plan -> review -> scheduling loop ->
// synthesis sequence and returns the synthesized answer as raw JSON text.
func (m *Manager) runTaskCore(ctx context.Context, instruction, outputSchemaDescription string, agentCtx *Context) (string, error) {
	plan, err := m.planTask(ctx, instruction)
	if err != nil {
		return "", err
	}

	currentPlan, err := m.reviewPlan(ctx, instruction, plan)
	if err != nil {
		return "", err
	}

	completed := map[string]bool{}
	var historyLog [][2]string // (id, summary)
	globalReplans := 0

	for {
		if allCompleted(currentPlan, completed) {
			break
		}

		g := dag.New(toNodes(currentPlan))
		if err := g.Validate(); err != nil {
			return "", core.NewFrameworkError("Manager.runTaskCore", "deadlock", agentCtx.TraceID, err.Error(), core.ErrDeadlock)
		}

		frontierIDs := g.Frontier(completed)
		if len(frontierIDs) == 0 {
			if g.Pending(completed) {
				return "", core.NewFrameworkError("Manager.runTaskCore", "deadlock", agentCtx.TraceID,
					"no executable task but work remains", core.ErrDeadlock)
			}
			break
		}

		frontier := tasksByID(currentPlan, frontierIDs)
		snapshot := agentCtx.ArtifactSnapshot()

		batchCtx, span := telemetry.StartSpan(ctx, "dag.batch")
		outcomes := m.executeBatch(batchCtx, frontier, snapshot, agentCtx)
		span.End()

		batchFailed, failureInfo := m.foldResults(frontier, outcomes, completed, &historyLog, agentCtx)

		if batchFailed {
			if globalReplans >= m.maxGlobalReplans {
				return "", core.NewFrameworkError("Manager.runTaskCore", "replan", agentCtx.TraceID, failureInfo, core.ErrReplanBudgetExceeded)
			}
			globalReplans++
			telemetry.RecordReplan(ctx)
			newTasks, err := m.replanRemaining(ctx, instruction, currentPlan, completed, historyLog, failureInfo)
			if err != nil {
				return "", err
			}
			currentPlan = mergePlan(currentPlan, completed, newTasks)
			agentCtx.AppendHistory(fmt.Sprintf("Replanning (#%d) triggered by: %s", globalReplans, failureInfo))
		}
	}

	artifactsJSON, err := json.MarshalIndent(agentCtx.Artifacts(), "", "  ")
	if err != nil {
		return "", core.NewFrameworkError("Manager.runTaskCore", "synthesis", agentCtx.TraceID, "could not marshal artifacts", err)
	}

	return m.synthesizeFinal(ctx, instruction, agentCtx.HistoryText("\n"), string(artifactsJSON), outputSchemaDescription)
}

// executeBatch runs every frontier task in parallel, one goroutine per task,
// and waits for all to finish before returning - the structured-concurrency
// boundary spec.md §5 requires. Plain sync.WaitGroup, with each goroutine
// writing its outcome into a results slice at its frontier index, matching
// the teacher's batch-parallel executor style rather than errgroup (not used
// anywhere in the examples pack).
func (m *Manager) executeBatch(ctx context.Context, frontier []SubTask, snapshot map[string]any, agentCtx *Context) []PipelineOutcome {
	results := make([]PipelineOutcome, len(frontier))
	var wg sync.WaitGroup
	wg.Add(len(frontier))
	for i, task := range frontier {
		i, task := i, task
		go func() {
			defer wg.Done()
			results[i] = m.runPipeline(ctx, task, snapshot, agentCtx)
		}()
	}
	wg.Wait()
	return results
}

// foldResults applies §4.7 step 4: fold each outcome into completed/history/
// artifacts, keeping only the first failure's message as failureInfo.
func (m *Manager) foldResults(frontier []SubTask, outcomes []PipelineOutcome, completed map[string]bool, historyLog *[][2]string, agentCtx *Context) (bool, string) {
	batchFailed := false
	failureInfo := ""
	for i, res := range outcomes {
		task := frontier[i]
		if res.Success {
			completed[task.ID] = true
			*historyLog = append(*historyLog, [2]string{task.ID, res.Summary})
			agentCtx.AppendHistory(fmt.Sprintf("Task [%s] SUCCESS. Summary: %s", task.ID, res.Summary))
			if res.OutputData != nil {
				agentCtx.WithLock(func(s *ContextState) {
					s.Artifacts[task.ID] = res.OutputData
				})
			}
			continue
		}
		if !batchFailed {
			batchFailed = true
			failureInfo = fmt.Sprintf("Task '%s' failed. Reason: %s", task.ID, firstNonEmpty(res.Feedback, "Unknown"))
		}
		agentCtx.AppendHistory(fmt.Sprintf("Task [%s] FAILURE: %s", task.ID, firstNonEmpty(res.Feedback, "Unknown")))
	}
	return batchFailed, failureInfo
}

func allCompleted(plan []SubTask, completed map[string]bool) bool {
	for _, t := range plan {
		if !completed[t.ID] {
			return false
		}
	}
	return true
}

func toNodes(plan []SubTask) []dag.Node {
	nodes := make([]dag.Node, len(plan))
	for i, t := range plan {
		nodes[i] = dag.Node{ID: t.ID, Dependencies: t.Dependencies}
	}
	return nodes
}

func tasksByID(plan []SubTask, ids []string) []SubTask {
	byID := make(map[string]SubTask, len(plan))
	for _, t := range plan {
		byID[t.ID] = t
	}
	out := make([]SubTask, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

// mergePlan preserves completed tasks by id, in original order, and appends
// the replanner's new tasks for the pending portion (spec.md §3 lifecycle).
func mergePlan(old []SubTask, completed map[string]bool, replacement []SubTask) []SubTask {
	out := make([]SubTask, 0, len(old)+len(replacement))
	for _, t := range old {
		if completed[t.ID] {
			out = append(out, t)
		}
	}
	out = append(out, replacement...)
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func (m *Manager) planTask(ctx context.Context, instruction string) (ExecutionPlan, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.plan")
	defer span.End()

	prompt := template.Render(m.prompts.PlanningPrompt, map[string]string{
		"skill_descriptions": m.skills.Descriptions(),
		"user_instruction":   instruction,
	})
	raw, err := m.llms.Planning.Chat(ctx, "You are a meticulous task planner.", prompt)
	if err != nil {
		span.RecordError(err)
		return ExecutionPlan{}, core.NewFrameworkError("Manager.planTask", "plan", "", "planning backend call failed", err)
	}
	var plan ExecutionPlan
	if err := json.Unmarshal([]byte(template.StripFence(raw)), &plan); err != nil {
		span.RecordError(err)
		return ExecutionPlan{}, core.NewFrameworkError("Manager.planTask", "plan", "", "could not parse plan", fmt.Errorf("%w: %v", core.ErrPlanParse, err))
	}
	return plan, nil
}

func (m *Manager) reviewPlan(ctx context.Context, instruction string, plan ExecutionPlan) ([]SubTask, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.review")
	defer span.End()

	planJSON, err := json.MarshalIndent(plan.Tasks, "", "  ")
	if err != nil {
		return plan.Tasks, nil
	}
	prompt := template.Render(m.prompts.PlanReviewPrompt, map[string]string{
		"user_instruction": instruction,
		"current_plan":     string(planJSON),
		"available_skills": m.skills.NamesJoined(),
	})
	raw, err := m.llms.Review.Chat(ctx, "You are a critical plan reviewer.", prompt)
	if err != nil {
		// Review is advisory, not gating (spec.md §4.6): a backend failure
		// falls back to the original plan just like a parse failure.
		span.RecordError(err)
		return plan.Tasks, nil
	}
	var reviewed ExecutionPlan
	if err := json.Unmarshal([]byte(template.StripFence(raw)), &reviewed); err != nil {
		return plan.Tasks, nil
	}
	return reviewed.Tasks, nil
}
