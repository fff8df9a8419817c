package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meridianai/taskforge/core"
	"github.com/meridianai/taskforge/llm"
	"github.com/meridianai/taskforge/store"
	"github.com/meridianai/taskforge/telemetry"
	"github.com/meridianai/taskforge/template"
)

// DebateHost is the secondary scheduling mode (spec.md §4.13): no DAG, a
// host LLM picks the next speaker from the skill registry or concludes, up
// to maxTurns. Grounded on the original crate's host.rs DebateHost/
// DebateHostBuilder.
type DebateHost struct {
	name      string
	hostLLM   llm.Backend
	skills    *SkillRegistry
	store     store.ContextStore
	logger    core.Logger
	maxTurns  int
	prompts   PromptConfig
}

// DebateHostBuilder constructs a DebateHost via chained With* calls,
// mirroring DebateHostBuilder in host.rs.
type DebateHostBuilder struct {
	h *DebateHost
}

// NewDebateHostBuilder starts a builder with name, the single backend used
// for both host decisions and final synthesis, and a context store.
func NewDebateHostBuilder(name string, hostLLM llm.Backend, st store.ContextStore) *DebateHostBuilder {
	return &DebateHostBuilder{h: &DebateHost{
		name:     name,
		hostLLM:  hostLLM,
		skills:   NewSkillRegistry(),
		store:    st,
		logger:   core.NoOpLogger{},
		maxTurns: 10,
		prompts:  DefaultPromptConfig(),
	}}
}

// RegisterSkill adds a speaker to the debate's skill registry.
func (b *DebateHostBuilder) RegisterSkill(s Skill) *DebateHostBuilder {
	b.h.skills.Register(s)
	return b
}

// WithMaxTurns overrides the default of 10 turns.
func (b *DebateHostBuilder) WithMaxTurns(n int) *DebateHostBuilder {
	b.h.maxTurns = n
	return b
}

// WithHostPrompt overrides the host-decision template.
func (b *DebateHostBuilder) WithHostPrompt(tmpl string) *DebateHostBuilder {
	b.h.prompts.HostPrompt = tmpl
	return b
}

// WithSynthesisPrompt overrides the debate-synthesis template.
func (b *DebateHostBuilder) WithSynthesisPrompt(tmpl string) *DebateHostBuilder {
	b.h.prompts.DebateSynthesisPrompt = tmpl
	return b
}

// WithLogger sets the structured logger.
func (b *DebateHostBuilder) WithLogger(logger core.Logger) *DebateHostBuilder {
	b.h.logger = logger
	return b
}

// Build returns the constructed DebateHost.
func (b *DebateHostBuilder) Build() *DebateHost {
	return b.h
}

// debateTurn is one completed or failed turn of the debate, used to render
// the history summary passed to the host and to the final synthesis.
type debateTurn struct {
	round       int
	speaker     string
	instruction string
	content     string
}

// RunDebate runs topic to completion and synthesizes a T, guaranteeing
// exactly-once persistence on every exit path, exactly like RunTask.
func RunDebate[T any](ctx context.Context, h *DebateHost, topic, outputSchemaDescription string) (T, error) {
	var zero T

	agentCtx := NewContext()
	agentCtx.AppendHistory(fmt.Sprintf("(Debate Topic): %s", topic))
	ctx = core.ContextWithTraceID(ctx, agentCtx.TraceID)

	raw, runErr := h.runDebateCore(ctx, topic, outputSchemaDescription, agentCtx)

	h.persist(ctx, agentCtx)

	if runErr != nil {
		return zero, runErr
	}
	var result T
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return zero, core.NewFrameworkError("DebateHost.RunDebate", "synthesis", agentCtx.TraceID,
			"synthesized output did not match the requested type", fmt.Errorf("%w: %v", core.ErrSynthesisParse, err))
	}
	return result, nil
}

func (h *DebateHost) persist(ctx context.Context, agentCtx *Context) {
	h.logger.InfoWithContext(ctx, "persisting debate context", map[string]interface{}{"trace_id": agentCtx.TraceID})
	rec := &store.Record{
		TraceID:    agentCtx.TraceID,
		History:    agentCtx.HistoryLines(),
		SharedData: agentCtx.Artifacts(),
	}
	if err := h.store.Save(ctx, rec); err != nil {
		h.logger.ErrorWithContext(ctx, "debate context save failed", map[string]interface{}{
			"trace_id": agentCtx.TraceID,
			"error":    err.Error(),
		})
	}
}

func (h *DebateHost) runDebateCore(ctx context.Context, topic, outputSchemaDescription string, agentCtx *Context) (string, error) {
	var turns []debateTurn

	for round := 1; round <= h.maxTurns; round++ {
		decision, err := h.askHostForDecision(ctx, topic, turns)
		if err != nil {
			return "", core.NewFrameworkError("DebateHost.runDebateCore", "plan", agentCtx.TraceID, "host decision failed", fmt.Errorf("%w: %v", core.ErrPlanParse, err))
		}

		if decision.Action == "conclude" {
			break
		}
		if decision.Action != "next" {
			h.logger.WarnWithContext(ctx, "host returned unknown action, ending debate", map[string]interface{}{"action": decision.Action})
			break
		}
		h.runTurn(ctx, topic, round, decision, agentCtx, &turns)
	}

	historyText := formatTurns(turns)
	return h.synthesizeDebate(ctx, topic, historyText, outputSchemaDescription)
}

func (h *DebateHost) runTurn(ctx context.Context, topic string, round int, decision hostDecision, agentCtx *Context, turns *[]debateTurn) {
	speakerName := decision.NextSpeaker
	skill, ok := h.skills.Get(speakerName)
	if !ok {
		h.logger.WarnWithContext(ctx, "host selected unknown speaker", map[string]interface{}{"speaker": speakerName})
		return
	}

	contextSummary := formatTurns(*turns)
	payload := TaskPayload{
		Instruction: decision.Instruction,
		Params: map[string]any{
			"topic":            topic,
			"round":            round,
			"context_summary":  contextSummary,
			"host_instruction": decision.Instruction,
		},
	}
	result, err := skill.Execute(ctx, agentCtx, payload)
	if err != nil {
		agentCtx.AppendHistory(fmt.Sprintf("[R%d - %s] FAILED: %s", round, speakerName, err))
		*turns = append(*turns, debateTurn{round: round, speaker: speakerName, instruction: decision.Instruction, content: "ERROR: " + err.Error()})
		return
	}

	agentCtx.AppendHistory(fmt.Sprintf("[R%d - %s]: %s", round, speakerName, result.Summary))
	if result.Data != nil {
		key := fmt.Sprintf("%s_r%d", speakerName, round)
		agentCtx.WithLock(func(s *ContextState) {
			s.Artifacts[key] = result.Data
		})
	}
	*turns = append(*turns, debateTurn{round: round, speaker: speakerName, instruction: decision.Instruction, content: result.Summary})
}

func (h *DebateHost) askHostForDecision(ctx context.Context, topic string, turns []debateTurn) (hostDecision, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.host.decision")
	defer span.End()

	skillList := h.skillListText()
	historyText := "No discussion yet."
	if len(turns) > 0 {
		historyText = formatTurns(turns)
	}
	prompt := template.Render(h.prompts.HostPrompt, map[string]string{
		"topic":      topic,
		"skill_list": skillList,
		"history":    historyText,
	})
	raw, err := h.hostLLM.Chat(ctx, "You moderate a structured debate between expert personas.", prompt)
	if err != nil {
		span.RecordError(err)
		return hostDecision{}, err
	}
	var d hostDecision
	if err := json.Unmarshal([]byte(template.StripFence(raw)), &d); err != nil {
		span.RecordError(err)
		return hostDecision{}, err
	}
	return d, nil
}

func (h *DebateHost) synthesizeDebate(ctx context.Context, topic, historyText, schemaDesc string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.host.synthesis")
	defer span.End()

	prompt := template.Render(h.prompts.DebateSynthesisPrompt, map[string]string{
		"topic":   topic,
		"history": historyText,
		"schema":  schemaDesc,
	})
	raw, err := h.hostLLM.Chat(ctx, "You summarize a concluded debate into the requested structured answer.", prompt)
	if err != nil {
		span.RecordError(err)
		return "", core.NewFrameworkError("DebateHost.synthesizeDebate", "synthesis", "", "debate synthesis backend call failed", fmt.Errorf("%w: %v", core.ErrSynthesisParse, err))
	}
	clean := template.StripFence(raw)
	var probe any
	if err := json.Unmarshal([]byte(clean), &probe); err != nil {
		return "", core.NewFrameworkError("DebateHost.synthesizeDebate", "synthesis", "", "could not parse debate synthesis", fmt.Errorf("%w: %v", core.ErrSynthesisParse, err))
	}
	if err := validateAgainstSchema(schemaDesc, clean); err != nil {
		span.RecordError(err)
		return "", core.NewFrameworkError("DebateHost.synthesizeDebate", "synthesis", "", "debate synthesis failed schema validation", fmt.Errorf("%w: %v", core.ErrSynthesisParse, err))
	}
	return clean, nil
}

func (h *DebateHost) skillListText() string {
	var lines []string
	for _, name := range h.skills.Names() {
		s, _ := h.skills.Get(name)
		lines = append(lines, fmt.Sprintf("- Name: %s\n  Description: %s", s.Name(), s.Description()))
	}
	return strings.Join(lines, "\n")
}

func formatTurns(turns []debateTurn) string {
	var blocks []string
	for _, t := range turns {
		blocks = append(blocks, fmt.Sprintf("--- Round %d ---\nSpeaker: %s\nInstruction: %s\nResult: %s\n",
			t.round, t.speaker, t.instruction, t.content))
	}
	return strings.Join(blocks, "\n")
}
