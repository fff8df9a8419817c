package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/meridianai/taskforge/telemetry"
	"github.com/meridianai/taskforge/template"
)

// reflectAndReroute implements C11 (spec.md §4.10): propose a different
// skill/params after a failure. A non-fatal parse failure is reported back
// to the caller, which keeps the previous skill/params and retries with
// identical input (spec.md §7's ReflectionParseError policy).
func (m *Manager) reflectAndReroute(ctx context.Context, task SubTask, failure string, currentParams map[string]any) (string, map[string]any, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.reflect."+task.ID)
	defer span.End()

	paramsJSON, err := json.Marshal(currentParams)
	if err != nil {
		paramsJSON = []byte("{}")
	}
	prompt := template.Render(m.prompts.ReflectionPrompt, map[string]string{
		"task_description": task.Description,
		"failed_skill":     task.SkillName,
		"current_params":   string(paramsJSON),
		"error_msg":        failure,
		"available_skills": m.skills.NamesJoined(),
	})
	raw, err := m.llms.Reflection.Chat(ctx, "You diagnose task failures and propose a fix.", prompt)
	if err != nil {
		span.RecordError(err)
		return "", nil, fmt.Errorf("reflection backend call failed: %w", err)
	}
	var r reflection
	if err := json.Unmarshal([]byte(template.StripFence(raw)), &r); err != nil {
		return "", nil, fmt.Errorf("could not parse reflection response: %w", err)
	}
	return r.NewSkill, r.NewParams, nil
}
