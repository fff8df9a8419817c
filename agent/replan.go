package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meridianai/taskforge/core"
	"github.com/meridianai/taskforge/telemetry"
	"github.com/meridianai/taskforge/template"
)

// replanRemaining implements C12 (spec.md §4.11): rewrite the pending
// portion of the plan after an unrecoverable task failure. Parse failure is
// fatal to the run (spec.md §7).
func (m *Manager) replanRemaining(ctx context.Context, instruction string, plan []SubTask, completed map[string]bool, historyLog [][2]string, reason string) ([]SubTask, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.replan")
	defer span.End()

	var completedLines []string
	for _, h := range historyLog {
		completedLines = append(completedLines, fmt.Sprintf("- %s: %s", h[0], h[1]))
	}
	var pendingLines []string
	for _, t := range plan {
		if !completed[t.ID] {
			pendingLines = append(pendingLines, fmt.Sprintf("- %s: %s", t.ID, t.Description))
		}
	}

	prompt := template.Render(m.prompts.ReplanningPrompt, map[string]string{
		"goal":            instruction,
		"completed_desc":  strings.Join(completedLines, "\n"),
		"failure_reason":  reason,
		"pending_desc":    strings.Join(pendingLines, "\n"),
	})
	raw, err := m.llms.Replanning.Chat(ctx, "You rewrite the remaining portion of a failed execution plan.", prompt)
	if err != nil {
		span.RecordError(err)
		return nil, core.NewFrameworkError("Manager.replanRemaining", "replan", "", "replanning backend call failed", err)
	}
	var newPlan ExecutionPlan
	if err := json.Unmarshal([]byte(template.StripFence(raw)), &newPlan); err != nil {
		span.RecordError(err)
		return nil, core.NewFrameworkError("Manager.replanRemaining", "plan", "", "could not parse replan", fmt.Errorf("%w: %v", core.ErrPlanParse, err))
	}
	return newPlan.Tasks, nil
}
