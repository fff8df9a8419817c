package agent

import (
	"context"
	"fmt"

	"github.com/meridianai/taskforge/telemetry"
	"github.com/meridianai/taskforge/template"
)

// runPipeline drives one SubTask through resolve -> execute -> verify ->
// reflect -> retry (spec.md §4.8), bounded by m.maxTaskRetries. artifacts is
// the batch-start snapshot; the pipeline never writes to the context's
// artifact map directly, only returns a PipelineOutcome for the scheduler's
// fold step to apply.
func (m *Manager) runPipeline(ctx context.Context, task SubTask, artifacts map[string]any, agentCtx *Context) PipelineOutcome {
	ctx, span := telemetry.StartSpan(ctx, "agent.pipeline."+task.ID)
	defer span.End()

	resolved, _ := template.ResolveParams(task.Params, artifacts).(map[string]any)

	currentSkill := task.SkillName
	currentParams := resolved
	lastFailure := ""
	attempt := 0

	for {
		skill, ok := m.skills.Get(currentSkill)
		if !ok {
			return PipelineOutcome{Success: false, Summary: fmt.Sprintf("Skill not found: %s", currentSkill)}
		}

		result, err := skill.Execute(ctx, agentCtx, TaskPayload{Instruction: task.Description, Params: currentParams})
		if err != nil {
			lastFailure = "Runtime Error: " + err.Error()
		} else {
			passed, reason := m.verifyWithAdjudication(ctx, task, result.Summary)
			if passed {
				return PipelineOutcome{Success: true, Summary: result.Summary, OutputData: result.Data}
			}
			lastFailure = reason
		}

		if attempt >= m.maxTaskRetries {
			return PipelineOutcome{Success: false, Summary: "Retries exhausted: " + lastFailure, Feedback: lastFailure}
		}

		newSkill, newParams, reflErr := m.reflectAndReroute(ctx, task, lastFailure, currentParams)
		if reflErr == nil {
			currentSkill = newSkill
			currentParams = newParams
			agentCtx.AppendHistory(fmt.Sprintf("Task [%s] reflecting after attempt %d: %s", task.ID, attempt+1, lastFailure))
		} else {
			m.logger.WarnWithContext(ctx, "reflection parse failure, retrying with unchanged skill/params", map[string]interface{}{
				"task_id": task.ID,
				"error":   reflErr.Error(),
			})
		}
		attempt++
	}
}
