package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/teemow/sheetmailer/internal/agent"
)

// OpenAI talks to the Chat Completions API.
type OpenAI struct {
	client       openai.Client
	model        string
	temperature  float64
	systemPrompt string
}

// NewOpenAI builds the client with SDK retries disabled.
func NewOpenAI(cfg Config, opts ...option.RequestOption) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai provider requires an API key")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAI{
		client:       openai.NewClient(reqOpts...),
		model:        model,
		temperature:  cfg.Temperature,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

func (p *OpenAI) Name() string  { return ProviderOpenAI }
func (p *OpenAI) Model() string { return p.model }

func (p *OpenAI) Reason(ctx context.Context, conv agent.Conversation, tools []agent.ToolSpec) (agent.Message, error) {
	messages, err := toOpenAIMessages(p.systemPrompt, conv)
	if err != nil {
		return agent.Message{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    messages,
		Temperature: openai.Float(p.temperature),
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return agent.Message{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return agent.Message{}, ErrEmptyResponse
	}

	return fromOpenAIMessage(resp.Choices[0].Message)
}

func toOpenAIMessages(systemPrompt string, conv agent.Conversation) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(conv)+1)
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}

	for _, msg := range conv {
		switch msg.Role {
		case agent.RoleHuman:
			out = append(out, openai.UserMessage(msg.Content))

		case agent.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))

		case agent.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}

			calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				args, err := encodeArguments(call.Arguments)
				if err != nil {
					return nil, fmt.Errorf("tool call %s: %w", call.ID, err)
				}
				calls = append(calls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: args,
					},
				})
			}

			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	return out, nil
}

func toOpenAITools(tools []agent.ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, tool := range tools {
		def := openai.FunctionDefinitionParam{
			Name:       tool.Name,
			Parameters: openai.FunctionParameters(normalizeSchema(tool.InputSchema)),
		}
		if tool.Description != "" {
			def.Description = openai.String(tool.Description)
		}
		out = append(out, openai.ChatCompletionToolParam{Function: def})
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) (agent.Message, error) {
	calls := make([]agent.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		args, err := decodeArguments(tc.Function.Arguments)
		if err != nil {
			return agent.Message{}, fmt.Errorf("tool call %s (%s): %w", tc.ID, tc.Function.Name, err)
		}
		calls = append(calls, agent.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return agent.AssistantMessage(msg.Content, calls...), nil
}
