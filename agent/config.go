package agent

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meridianai/taskforge/llm"
)

// AgentLLMConfig holds the seven named backend references spec.md §3
// requires, one per role, built from a default backend plus optional
// per-role overrides (mirroring the original's with_planning_llm/
// with_review_llm/... builder chain).
type AgentLLMConfig struct {
	Planning     llm.Backend
	Review       llm.Backend
	Reflection   llm.Backend
	Replanning   llm.Backend
	Synthesis    llm.Backend
	Verification llm.Backend
	Adjudication llm.Backend
}

// NewAgentLLMConfig builds a config where every role defaults to the same
// backend; use the With* setters to override individual roles.
func NewAgentLLMConfig(deflt llm.Backend) AgentLLMConfig {
	return AgentLLMConfig{
		Planning:     deflt,
		Review:       deflt,
		Reflection:   deflt,
		Replanning:   deflt,
		Synthesis:    deflt,
		Verification: deflt,
		Adjudication: deflt,
	}
}

// PromptConfig holds the prompt templates for the roles spec.md §6 names.
// HostPrompt/DebateSynthesisPrompt are only used by DebateHost; the other
// seven are used by Manager.
type PromptConfig struct {
	PlanningPrompt        string `yaml:"planning_prompt"`
	PlanReviewPrompt      string `yaml:"plan_review_prompt"`
	ReflectionPrompt      string `yaml:"reflection_prompt"`
	ReplanningPrompt      string `yaml:"replanning_prompt"`
	SynthesisPrompt       string `yaml:"synthesis_prompt"`
	VerificationPrompt    string `yaml:"verification_prompt"`
	AdjudicationPrompt    string `yaml:"adjudication_prompt"`
	HostPrompt            string `yaml:"host_prompt"`
	DebateSynthesisPrompt string `yaml:"debate_synthesis_prompt"`
}

// DefaultPromptConfig returns the built-in templates a Builder starts with.
// Builder.WithPrompts replaces the whole set, so a field it leaves empty is
// used as an empty template; use LoadPromptConfigFile to override only some
// fields on top of these defaults. They mirror the
// original crate's prompts/*.md files' placeholder sets (spec.md §6 table).
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		PlanningPrompt: "You are a task planner. Given the user instruction and the" +
			" available skills, produce a JSON execution plan.\n\n" +
			"Available skills:\n{{skill_descriptions}}\n\n" +
			"User instruction: {{user_instruction}}\n\n" +
			"Respond with JSON only: {\"thought\": string, \"tasks\": " +
			"[{\"id\": string, \"description\": string, \"dependencies\": " +
			"[string], \"skill_name\": string, \"params\": object, " +
			"\"acceptance_criteria\": string}]}.",
		PlanReviewPrompt: "Review the following execution plan for the instruction" +
			" below. Improve it if needed, or return it unchanged.\n\n" +
			"User instruction: {{user_instruction}}\n\n" +
			"Current plan:\n{{current_plan}}\n\n" +
			"Available skills: {{available_skills}}\n\n" +
			"Respond with JSON only, same shape as the input plan.",
		ReflectionPrompt: "A task failed. Propose a different skill or parameters to" +
			" recover.\n\nTask: {{task_description}}\nFailed skill: " +
			"{{failed_skill}}\nCurrent params: {{current_params}}\nError: " +
			"{{error_msg}}\nAvailable skills: {{available_skills}}\n\n" +
			"Respond with JSON only: {\"new_skill\": string, \"new_params\": " +
			"object, \"reason\": string}.",
		ReplanningPrompt: "Replan the remaining work for the following goal, given" +
			" what has already completed and why the plan failed.\n\nGoal: " +
			"{{goal}}\n\nCompleted:\n{{completed_desc}}\n\nFailure reason: " +
			"{{failure_reason}}\n\nStill pending:\n{{pending_desc}}\n\n" +
			"Respond with JSON only, a full execution plan for the remaining " +
			"work: {\"thought\": string, \"tasks\": [...]}.",
		SynthesisPrompt: "Synthesize the final answer for the instruction below" +
			" using the run history and collected artifacts, conforming to the" +
			" given schema.\n\nInstruction: {{instruction}}\n\nHistory:\n" +
			"{{history}}\n\nArtifacts:\n{{artifacts}}\n\nSchema: {{schema}}\n\n" +
			"Respond with JSON only, matching the schema.",
		VerificationPrompt: "Judge whether the output below satisfies the" +
			" acceptance criteria.\n\nTask: {{task_description}}\nAcceptance" +
			" criteria: {{acceptance_criteria}}\nActual output: " +
			"{{actual_output}}\n\nRespond with JSON only: {\"passed\": bool, " +
			"\"reason\": string, \"suggestion\": string}.",
		AdjudicationPrompt: "Verification judges disagree on the output below." +
			" Resolve the conflict.\n\nTask: {{task_description}}\nAcceptance" +
			" criteria: {{acceptance_criteria}}\nActual output: " +
			"{{actual_output}}\n\nConflict:\n{{verification_conflict}}\n\n" +
			"Respond with JSON only: {\"final_decision\": bool, \"rationale\": " +
			"string}.",
		HostPrompt: "You are moderating a debate on the topic below. Pick the next" +
			" speaker or conclude.\n\nTopic: {{topic}}\n\nSpeakers:\n" +
			"{{skill_list}}\n\nHistory so far:\n{{history}}\n\n" +
			"Respond with JSON only: {\"action\": \"next\"|\"conclude\", " +
			"\"next_speaker\": string, \"instruction\": string, \"rationale\": " +
			"string}.",
		DebateSynthesisPrompt: "Summarize the debate on the topic below into a final" +
			" answer conforming to the schema.\n\nTopic: {{topic}}\n\n" +
			"History:\n{{history}}\n\nSchema: {{schema}}\n\nRespond with JSON " +
			"only, matching the schema.",
	}
}

// Config holds the Builder-independent run parameters that make sense to
// source from environment variables (mirroring core.Config's three-layer
// priority: defaults, then env, then functional options), plus a Timeout
// applied by callers wrapping RunTask/RunDebate in a context deadline.
type Config struct {
	Name             string        `json:"name" env:"TASKFORGE_NAME"`
	LogLevel         string        `json:"log_level" env:"TASKFORGE_LOG_LEVEL" default:"info"`
	MaxGlobalReplans int           `json:"max_global_replans" env:"TASKFORGE_MAX_REPLANS" default:"3"`
	MaxTaskRetries   int           `json:"max_task_retries" env:"TASKFORGE_MAX_RETRIES" default:"2"`
	Timeout          time.Duration `json:"timeout" env:"TASKFORGE_TIMEOUT" default:"5m"`
}

// Option configures a Config, mirroring core.Config's WithName/WithPort
// functional-options pattern.
type Option func(*Config)

// WithName sets the Config's Name.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithLogLevel sets the Config's LogLevel.
func WithLogLevel(level string) Option {
	return func(c *Config) { c.LogLevel = level }
}

// WithMaxReplans sets the Config's MaxGlobalReplans.
func WithMaxReplans(n int) Option {
	return func(c *Config) { c.MaxGlobalReplans = n }
}

// WithTimeout sets the Config's Timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// NewConfig builds a Config from defaults, then environment variables, then
// opts (highest priority), matching core.NewConfig's layering.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		LogLevel:         "info",
		MaxGlobalReplans: MaxGlobalReplans,
		MaxTaskRetries:   MaxTaskRetries,
		Timeout:          5 * time.Minute,
	}
	if err := c.LoadFromEnv(); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LoadFromEnv overlays TASKFORGE_* environment variables onto c, the way
// core.Config.LoadFromEnv overlays GOMIND_* variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("TASKFORGE_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("TASKFORGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("TASKFORGE_MAX_REPLANS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TASKFORGE_MAX_REPLANS: %w", err)
		}
		c.MaxGlobalReplans = n
	}
	if v := os.Getenv("TASKFORGE_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TASKFORGE_MAX_RETRIES: %w", err)
		}
		c.MaxTaskRetries = n
	}
	if v := os.Getenv("TASKFORGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TASKFORGE_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// LoadPromptConfigFile reads a YAML file of prompt-template overrides and
// applies them on top of base, leaving any field the file omits untouched.
// Only non-empty override fields take effect, so a file needs to name only
// the roles it customizes.
func LoadPromptConfigFile(path string, base PromptConfig) (PromptConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading prompt config file: %w", err)
	}
	var overrides PromptConfig
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return base, fmt.Errorf("parsing prompt config file: %w", err)
	}
	merged := base
	mergeNonEmpty(&merged.PlanningPrompt, overrides.PlanningPrompt)
	mergeNonEmpty(&merged.PlanReviewPrompt, overrides.PlanReviewPrompt)
	mergeNonEmpty(&merged.ReflectionPrompt, overrides.ReflectionPrompt)
	mergeNonEmpty(&merged.ReplanningPrompt, overrides.ReplanningPrompt)
	mergeNonEmpty(&merged.SynthesisPrompt, overrides.SynthesisPrompt)
	mergeNonEmpty(&merged.VerificationPrompt, overrides.VerificationPrompt)
	mergeNonEmpty(&merged.AdjudicationPrompt, overrides.AdjudicationPrompt)
	mergeNonEmpty(&merged.HostPrompt, overrides.HostPrompt)
	mergeNonEmpty(&merged.DebateSynthesisPrompt, overrides.DebateSynthesisPrompt)
	return merged, nil
}

func mergeNonEmpty(dst *string, override string) {
	if override != "" {
		*dst = override
	}
}
