// Command demo wires a minimal taskforge Manager: one skill, a local
// filesystem context store, and whichever model backend an API key is
// available for. It exists to exercise the wiring end to end, not as a
// production entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/meridianai/taskforge/agent"
	"github.com/meridianai/taskforge/core"
	"github.com/meridianai/taskforge/llm"
	"github.com/meridianai/taskforge/llm/anthropic"
	"github.com/meridianai/taskforge/llm/openai"
	"github.com/meridianai/taskforge/store/localstore"
)

// addNumbersSkill is a toy skill standing in for a real LLM-backed tool;
// spec.md S1 uses exactly this shape (skill named "add_numbers").
type addNumbersSkill struct{}

func (addNumbersSkill) Name() string { return "add_numbers" }
func (addNumbersSkill) Description() string {
	return "Adds two integer parameters 'a' and 'b' and returns their sum."
}

func (addNumbersSkill) Execute(_ context.Context, _ *agent.Context, payload agent.TaskPayload) (agent.TaskResult, error) {
	a, _ := payload.Params["a"].(float64)
	b, _ := payload.Params["b"].(float64)
	sum := a + b
	return agent.TaskResult{
		Summary: fmt.Sprintf("Calculated %.0f+%.0f=%.0f", a, b, sum),
		Data:    map[string]any{"result": sum},
	}, nil
}

func backendFromEnv() (llm.Backend, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return anthropic.NewFromAPIKey(key, anthropic.Options{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 4096,
		})
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return openai.NewFromAPIKey(key, openai.Options{
			Model:     "gpt-4o-mini",
			MaxTokens: 4096,
		})
	}
	return nil, fmt.Errorf("set ANTHROPIC_API_KEY or OPENAI_API_KEY to run the demo")
}

func main() {
	backend, err := backendFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	st, err := localstore.New("./taskforge-runs")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := core.NewProductionLogger("taskforge-demo", "info")

	manager := agent.NewBuilder("demo-manager", backend, st).
		WithLogger(logger).
		WithVerificationRateLimit(5, 2).
		WithCircuitBreaker(5, 30*time.Second).
		RegisterSkill(addNumbersSkill{}).
		Build()

	type answer struct {
		FinalAnswer float64 `json:"final_answer"`
		Notes       string  `json:"notes"`
	}

	result, err := agent.RunTask[answer](context.Background(), manager,
		"Calculate 10 + 20",
		`{"type":"object","properties":{"final_answer":{"type":"number"},"notes":{"type":"string"}},"required":["final_answer","notes"]}`)
	if err != nil {
		fmt.Fprintln(os.Stderr, "run failed:", err)
		os.Exit(1)
	}
	fmt.Printf("final_answer=%v notes=%q\n", result.FinalAnswer, result.Notes)
}
