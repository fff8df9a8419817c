package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/meridianai/taskforge/telemetry"
	"github.com/meridianai/taskforge/template"
)

// verifyWithAdjudication implements the full C10 protocol (spec.md §4.9):
// three parallel votes, unanimous pass/fail skip the adjudicator, a split
// vote invokes exactly one adjudication call. This is the full protocol the
// spec directs, not the stubbed variant the original source also carries
// (which unconditionally returned pass) - see DESIGN.md's Open Questions
// resolution.
func (m *Manager) verifyWithAdjudication(ctx context.Context, task SubTask, output string) (bool, string) {
	ctx, span := telemetry.StartSpan(ctx, "agent.verify."+task.ID)
	defer span.End()

	votes := m.collectVotes(ctx, task, output)

	var passReasons, failReasons []string
	passCount, failCount := 0, 0
	for _, v := range votes {
		if v.Passed {
			passCount++
			passReasons = append(passReasons, v.Reason)
		} else {
			failCount++
			failReasons = append(failReasons, v.Reason)
		}
	}
	telemetry.RecordVerificationVotes(ctx, passCount, failCount)

	if failCount == 0 {
		return true, "Unanimous Pass"
	}
	if passCount == 0 {
		return false, strings.Join(failReasons, "; ")
	}

	verdict, err := m.adjudicate(ctx, task, output, passReasons, failReasons)
	if err != nil {
		// No usable adjudication: conservatively treat as failed so the
		// pipeline enters reflection rather than silently passing.
		return false, fmt.Sprintf("adjudication failed: %v", err)
	}
	return verdict.FinalDecision, verdict.Rationale
}

// collectVotes issues m.verificationVotes parallel calls via the
// verification backend. Parse/transport errors drop that vote rather than
// counting it either way (spec.md §4.9 step 1).
func (m *Manager) collectVotes(ctx context.Context, task SubTask, output string) []VerificationVote {
	n := m.verificationVotes
	raws := make([]VerificationVote, 0, n)
	ch := make(chan (*VerificationVote), n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ch <- m.oneVote(ctx, task, output)
		}()
	}
	go func() {
		wg.Wait()
		close(ch)
	}()
	for v := range ch {
		if v != nil {
			raws = append(raws, *v)
		}
	}
	return raws
}

func (m *Manager) oneVote(ctx context.Context, task SubTask, output string) *VerificationVote {
	prompt := template.Render(m.prompts.VerificationPrompt, map[string]string{
		"task_description":    task.Description,
		"acceptance_criteria": task.AcceptanceCriteria,
		"actual_output":       output,
	})
	raw, err := m.llms.Verification.Chat(ctx, "You are an exacting output verifier.", prompt)
	if err != nil {
		return nil
	}
	var vote VerificationVote
	if err := json.Unmarshal([]byte(template.StripFence(raw)), &vote); err != nil {
		return nil
	}
	return &vote
}

func (m *Manager) adjudicate(ctx context.Context, task SubTask, output string, passReasons, failReasons []string) (AdjudicationVerdict, error) {
	conflict := fmt.Sprintf("Passed votes said: %s\nFailed votes said: %s",
		strings.Join(passReasons, " | "), strings.Join(failReasons, " | "))
	prompt := template.Render(m.prompts.AdjudicationPrompt, map[string]string{
		"task_description":      task.Description,
		"acceptance_criteria":   task.AcceptanceCriteria,
		"actual_output":         output,
		"verification_conflict": conflict,
	})
	raw, err := m.llms.Adjudication.Chat(ctx, "You are the final adjudicator on a disputed verification.", prompt)
	if err != nil {
		return AdjudicationVerdict{}, err
	}
	var verdict AdjudicationVerdict
	if err := json.Unmarshal([]byte(template.StripFence(raw)), &verdict); err != nil {
		return AdjudicationVerdict{}, err
	}
	return verdict, nil
}
