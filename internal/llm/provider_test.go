package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/sheetmailer/internal/agent"
	"github.com/teemow/sheetmailer/internal/instrumentation"
)

type fakeProvider struct {
	msg agent.Message
	err error
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }
func (f *fakeProvider) Reason(context.Context, agent.Conversation, []agent.ToolSpec) (agent.Message, error) {
	return f.msg, f.err
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		errContains string
	}{
		{"missing key", Config{Provider: "openai"}, "requires an API key"},
		{"unknown provider", Config{Provider: "llama", APIKey: "k"}, "unknown LLM provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg, nil, nil)
			assert.ErrorContains(t, err, tt.errContains)
		})
	}
}

func TestNew_DefaultsToOpenAI(t *testing.T) {
	p, err := New(context.Background(), Config{APIKey: "k"}, &instrumentation.Metrics{}, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p.Name())
	assert.Equal(t, DefaultOpenAIModel, p.Model())
}

func TestInstrument_PassesThrough(t *testing.T) {
	want := agent.AssistantMessage("4")
	p := Instrument(&fakeProvider{msg: want}, nil, nil)

	got, err := p.Reason(context.Background(), agent.NewConversation("What is 2+2?"), nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "fake", p.Name())

	boom := errors.New("boom")
	_, err = Instrument(&fakeProvider{err: boom}, nil, nil).Reason(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestNormalizeSchema(t *testing.T) {
	in := map[string]any{"properties": map[string]any{"a": map[string]any{"type": "string"}}}
	out := normalizeSchema(in)

	assert.Equal(t, "object", out["type"])
	assert.NotContains(t, in, "type", "input must not be modified")

	assert.Equal(t, map[string]any{"type": "object", "properties": map[string]any{}}, normalizeSchema(nil))
}

func TestArgumentsRoundTrip(t *testing.T) {
	raw, err := encodeArguments(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)

	args, err := decodeArguments("")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = decodeArguments("null")
	require.NoError(t, err)
	assert.NotNil(t, args)

	_, err = decodeArguments(`["not","an","object"]`)
	assert.ErrorIs(t, err, ErrMalformedArguments)
}
