package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/teemow/sheetmailer/internal/agent"
)

// Gemini talks to the Gemini API.
type Gemini struct {
	client       *genai.Client
	model        string
	temperature  float32
	systemPrompt string
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini provider requires an API key")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{
		client:       client,
		model:        model,
		temperature:  float32(cfg.Temperature),
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

func (p *Gemini) Name() string  { return ProviderGemini }
func (p *Gemini) Model() string { return p.model }

func (p *Gemini) Reason(ctx context.Context, conv agent.Conversation, tools []agent.ToolSpec) (agent.Message, error) {
	contents, err := toGeminiContents(conv)
	if err != nil {
		return agent.Message{}, err
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(p.temperature),
	}
	if p.systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(p.systemPrompt, genai.RoleUser)
	}
	if len(tools) > 0 {
		config.Tools = toGeminiTools(tools)
		config.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return agent.Message{}, fmt.Errorf("gemini generate content failed: %w", err)
	}

	return fromGeminiResponse(resp)
}

// toGeminiContents maps the conversation to Gemini turns. Consecutive tool
// results are grouped into one user turn, as the API expects one function
// response turn per function call turn.
func toGeminiContents(conv agent.Conversation) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(conv))
	var pending []*genai.Part

	flush := func() {
		if len(pending) > 0 {
			contents = append(contents, genai.NewContentFromParts(pending, genai.RoleUser))
			pending = nil
		}
	}

	for _, msg := range conv {
		switch msg.Role {
		case agent.RoleTool:
			part := genai.NewPartFromFunctionResponse(msg.ToolName, toolResponsePayload(msg))
			part.FunctionResponse.ID = msg.ToolCallID
			pending = append(pending, part)

		case agent.RoleHuman:
			flush()
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))

		case agent.RoleAssistant:
			flush()
			parts := make([]*genai.Part, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				part := genai.NewPartFromFunctionCall(call.Name, call.Arguments)
				part.FunctionCall.ID = call.ID
				if len(call.Signature) > 0 {
					part.ThoughtSignature = call.Signature
				}
				parts = append(parts, part)
			}
			if len(parts) == 0 {
				parts = append(parts, genai.NewPartFromText(""))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))

		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	flush()

	return contents, nil
}

func toolResponsePayload(msg agent.Message) map[string]any {
	if msg.IsError {
		return map[string]any{"error": msg.Content}
	}
	return map[string]any{"output": msg.Content}
}

func toGeminiTools(tools []agent.ToolSpec) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 tool.Name,
			Description:          tool.Description,
			ParametersJsonSchema: normalizeSchema(tool.InputSchema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// fromGeminiResponse reads the first candidate. Calls without an ID get a
// positional one so tool results can be matched.
func fromGeminiResponse(resp *genai.GenerateContentResponse) (agent.Message, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return agent.Message{}, ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return agent.AssistantMessage(""), nil
	}

	var (
		text  strings.Builder
		calls []agent.ToolCall
	)
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", len(calls))
			}
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			calls = append(calls, agent.ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: args,
				Signature: part.ThoughtSignature,
			})
		}
	}

	return agent.AssistantMessage(text.String(), calls...), nil
}
