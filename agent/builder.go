package agent

import (
	"time"

	"github.com/meridianai/taskforge/core"
	"github.com/meridianai/taskforge/llm"
	"github.com/meridianai/taskforge/store"
)

const (
	// MaxGlobalReplans bounds how many times the scheduler may invoke the
	// global replanner in one run (spec.md §5).
	MaxGlobalReplans = 3
	// MaxTaskRetries bounds retry attempts per task; three total attempts
	// (initial + two retries), spec.md §5/§8.
	MaxTaskRetries = 2
	// VerificationVotes is the fixed number of parallel judges per
	// verification round (spec.md §5/§8).
	VerificationVotes = 3
)

// Manager is the orchestration core (C6-C13 plus the scheduler): one
// instance runs many RunTask calls, each an independent run with its own
// Context.
type Manager struct {
	name    string
	llms    AgentLLMConfig
	prompts PromptConfig
	skills  *SkillRegistry
	store   store.ContextStore
	logger  core.Logger

	maxGlobalReplans  int
	maxTaskRetries    int
	verificationVotes int
}

// Builder constructs a Manager via chained With* calls, mirroring the
// original's ManagerAgentBuilder (with_planning_llm/with_review_llm/
// with_verification_llm/...), extended to all seven roles.
type Builder struct {
	m *Manager
}

// NewBuilder starts a Builder with name, a default backend applied to all
// seven roles, and a context store. Override individual roles with the
// With*Backend methods.
func NewBuilder(name string, defaultBackend llm.Backend, st store.ContextStore) *Builder {
	return &Builder{
		m: &Manager{
			name:              name,
			llms:              NewAgentLLMConfig(defaultBackend),
			prompts:           DefaultPromptConfig(),
			skills:            NewSkillRegistry(),
			store:             st,
			logger:            core.NoOpLogger{},
			maxGlobalReplans:  MaxGlobalReplans,
			maxTaskRetries:    MaxTaskRetries,
			verificationVotes: VerificationVotes,
		},
	}
}

// WithPlanningBackend overrides the planning role.
func (b *Builder) WithPlanningBackend(backend llm.Backend) *Builder {
	b.m.llms.Planning = backend
	return b
}

// WithReviewBackend overrides the plan-review role.
func (b *Builder) WithReviewBackend(backend llm.Backend) *Builder {
	b.m.llms.Review = backend
	return b
}

// WithReflectionBackend overrides the reflection role.
func (b *Builder) WithReflectionBackend(backend llm.Backend) *Builder {
	b.m.llms.Reflection = backend
	return b
}

// WithReplanningBackend overrides the global-replanning role.
func (b *Builder) WithReplanningBackend(backend llm.Backend) *Builder {
	b.m.llms.Replanning = backend
	return b
}

// WithSynthesisBackend overrides the synthesis role.
func (b *Builder) WithSynthesisBackend(backend llm.Backend) *Builder {
	b.m.llms.Synthesis = backend
	return b
}

// WithVerificationBackend overrides the verification role.
func (b *Builder) WithVerificationBackend(backend llm.Backend) *Builder {
	b.m.llms.Verification = backend
	return b
}

// WithAdjudicationBackend overrides the adjudication role.
func (b *Builder) WithAdjudicationBackend(backend llm.Backend) *Builder {
	b.m.llms.Adjudication = backend
	return b
}

// WithPrompts replaces the full prompt set.
func (b *Builder) WithPrompts(p PromptConfig) *Builder {
	b.m.prompts = p
	return b
}

// WithVerificationRateLimit wraps the verification role's current backend in
// an llm.RateLimited, so the three parallel verification votes (collectVotes
// in agent/verify.go) cannot burst past a provider's request budget. Must be
// called after the verification backend is set (WithVerificationBackend or
// the Builder's default), since it wraps whatever is currently configured.
func (b *Builder) WithVerificationRateLimit(rps float64, burst int) *Builder {
	b.m.llms.Verification = llm.NewRateLimited(b.m.llms.Verification, rps, burst)
	return b
}

// WithCircuitBreaker wraps every role's current backend in its own named
// llm.CircuitBreaking, so a provider in meltdown stops receiving new
// requests across all seven roles for recoveryTimeout instead of every
// planning/review/verification/... call piling up against it. Must be
// called after all role backends are set, since it wraps whatever is
// currently configured.
func (b *Builder) WithCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *Builder {
	b.m.llms.Planning = llm.NewCircuitBreaking("planning", b.m.llms.Planning, failureThreshold, recoveryTimeout)
	b.m.llms.Review = llm.NewCircuitBreaking("review", b.m.llms.Review, failureThreshold, recoveryTimeout)
	b.m.llms.Reflection = llm.NewCircuitBreaking("reflection", b.m.llms.Reflection, failureThreshold, recoveryTimeout)
	b.m.llms.Replanning = llm.NewCircuitBreaking("replanning", b.m.llms.Replanning, failureThreshold, recoveryTimeout)
	b.m.llms.Synthesis = llm.NewCircuitBreaking("synthesis", b.m.llms.Synthesis, failureThreshold, recoveryTimeout)
	b.m.llms.Verification = llm.NewCircuitBreaking("verification", b.m.llms.Verification, failureThreshold, recoveryTimeout)
	b.m.llms.Adjudication = llm.NewCircuitBreaking("adjudication", b.m.llms.Adjudication, failureThreshold, recoveryTimeout)
	return b
}

// WithLogger sets the structured logger (defaults to core.NoOpLogger).
func (b *Builder) WithLogger(logger core.Logger) *Builder {
	b.m.logger = logger
	return b
}

// WithMaxGlobalReplans overrides the global replan budget (default 3).
func (b *Builder) WithMaxGlobalReplans(n int) *Builder {
	b.m.maxGlobalReplans = n
	return b
}

// WithMaxTaskRetries overrides the per-task retry budget (default 2).
func (b *Builder) WithMaxTaskRetries(n int) *Builder {
	b.m.maxTaskRetries = n
	return b
}

// WithVerificationVotes overrides the verification quorum size (default 3).
func (b *Builder) WithVerificationVotes(n int) *Builder {
	b.m.verificationVotes = n
	return b
}

// RegisterSkill adds a skill to the Manager's registry.
func (b *Builder) RegisterSkill(s Skill) *Builder {
	b.m.skills.Register(s)
	return b
}

// Build returns the constructed Manager.
func (b *Builder) Build() *Manager {
	return b.m
}
