package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/sheetmailer/internal/agent"
	"github.com/teemow/sheetmailer/internal/llm"
)

func answered(text string) *agent.Result {
	return &agent.Result{
		Conversation: agent.Conversation{
			agent.HumanMessage("task"),
			agent.AssistantMessage(text),
		},
		StopReason: agent.StopFinalAnswer,
	}
}

func TestRunREPL(t *testing.T) {
	var asked []string
	ask := func(_ context.Context, q string) (*agent.Result, error) {
		asked = append(asked, q)
		if q == "break" {
			return &agent.Result{Conversation: agent.Conversation{agent.HumanMessage("task")}, StopReason: agent.StopError}, errors.New("model unavailable")
		}
		return answered("answer to " + q), nil
	}

	in := strings.NewReader("  total revenue  \n\n   \nbreak\nbest product\nQUIT\nnever asked\n")
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), in, &out, false, ask))

	assert.Equal(t, []string{"total revenue", "break", "best product"}, asked)
	got := out.String()
	assert.Contains(t, got, "answer to total revenue\nCompleted with 2 messages\n")
	assert.Contains(t, got, "Completed with 1 messages\nError: model unavailable\n")
	assert.Contains(t, got, "answer to best product\n")
	assert.NotContains(t, got, "Type 'exit' to quit.")
}

func TestRunREPLStopsAtEOF(t *testing.T) {
	var out bytes.Buffer
	calls := 0
	ask := func(context.Context, string) (*agent.Result, error) {
		calls++
		return answered("ok"), nil
	}

	require.NoError(t, runREPL(context.Background(), strings.NewReader("one question"), &out, true, ask))
	assert.Equal(t, 1, calls)
	assert.Contains(t, out.String(), "Type 'exit' to quit.")
}

func TestIsExitCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"exit", true},
		{"Quit", true},
		{" q ", true},
		{"EXIT", true},
		{"quitting", false},
		{"", false},
		{"what is q?", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, isExitCommand(tt.input))
		})
	}
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	printResult(&out, nil)
	assert.Empty(t, out.String())

	printResult(&out, &agent.Result{
		Conversation: agent.Conversation{agent.HumanMessage("task"), agent.TerminationMessage()},
		StopReason:   agent.StopCeilingExceeded,
	})
	assert.Equal(t, "Max iterations reached.\nCompleted with 2 messages\n", out.String())
}

func TestLLMConfigFromEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:4000/v1")
	t.Setenv("OPENAI_MODEL", "gpt-test")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("GEMINI_MODEL", "")

	cfg := llmConfigFromEnv(queryOptions{})
	assert.Equal(t, "", cfg.Provider)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "http://localhost:4000/v1", cfg.BaseURL)
	assert.Equal(t, "gpt-test", cfg.Model)

	cfg = llmConfigFromEnv(queryOptions{provider: "Gemini", model: "gemini-pro"})
	assert.Equal(t, llm.ProviderGemini, cfg.Provider)
	assert.Equal(t, "gem-key", cfg.APIKey)
	assert.Equal(t, "gemini-pro", cfg.Model)
	assert.Empty(t, cfg.BaseURL)
}
