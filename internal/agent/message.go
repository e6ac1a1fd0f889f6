package agent

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Outcome classifies an assistant message. It is decided once, when the
// message enters the conversation, and the loop routes on it.
type Outcome int

const (
	// OutcomeNone is the outcome of human and tool messages.
	OutcomeNone Outcome = iota
	OutcomeFinalAnswer
	OutcomeToolRequest
	OutcomeTerminationNotice
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFinalAnswer:
		return "final_answer"
	case OutcomeToolRequest:
		return "tool_request"
	case OutcomeTerminationNotice:
		return "termination_notice"
	default:
		return "none"
	}
}

// TerminationNotice is the content of the message appended when a run
// exceeds its ceiling.
const TerminationNotice = "Max iterations reached."

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`

	// Signature is an opaque provider token that must be sent back with the
	// call on the next request (Gemini thought signatures).
	Signature []byte `json:"signature,omitempty"`
}

// Message is one entry of a Conversation.
//
// Assistant messages carry either Content or ToolCalls (providers may send
// both). Tool messages carry the result of the call named by ToolCallID.
type Message struct {
	Role      Role       `json:"role"`
	Outcome   Outcome    `json:"outcome,omitempty"`
	Content   string     `json:"content,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// HumanMessage returns a message authored by the user.
func HumanMessage(text string) Message {
	return Message{Role: RoleHuman, Content: text}
}

// AssistantMessage returns a classified assistant message.
func AssistantMessage(text string, calls ...ToolCall) Message {
	return classify(Message{Role: RoleAssistant, Content: text, ToolCalls: calls})
}

// TerminationMessage returns the message appended when the ceiling is exceeded.
func TerminationMessage() Message {
	return Message{Role: RoleAssistant, Outcome: OutcomeTerminationNotice, Content: TerminationNotice}
}

// ToolResultMessage returns the tool message answering call.
func ToolResultMessage(call ToolCall, result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    result.Content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		IsError:    result.IsError,
	}
}

// classify forces the assistant role and assigns the outcome. The
// termination notice wins over any tool calls sent with it.
func classify(msg Message) Message {
	msg.Role = RoleAssistant
	switch {
	case msg.Content == TerminationNotice:
		msg.Outcome = OutcomeTerminationNotice
	case len(msg.ToolCalls) > 0:
		msg.Outcome = OutcomeToolRequest
	default:
		msg.Outcome = OutcomeFinalAnswer
	}
	return msg
}

// Conversation is the ordered message history of one query.
type Conversation []Message

// NewConversation starts a conversation with a single human task.
func NewConversation(task string) Conversation {
	return Conversation{HumanMessage(task)}
}

// Last returns the final message, if any.
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}

// Clone copies the conversation so appends never alias the original.
func (c Conversation) Clone() Conversation {
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// ToolSpec describes a tool offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	// InputSchema is a JSON schema object.
	InputSchema map[string]any
}

// ToolResult is the textual outcome of one tool execution. IsError marks
// failures the tool platform reported as content rather than as an error.
type ToolResult struct {
	Content string
	IsError bool
}

// Reasoner produces the next assistant message for a conversation. It must
// not modify conv.
type Reasoner interface {
	Reason(ctx context.Context, conv Conversation, tools []ToolSpec) (Message, error)
}

// ToolExecutor runs one tool invocation. Returned errors abort the run;
// failures that should be shown to the model belong in ToolResult.IsError.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (ToolResult, error)
}

// ReasonerFunc adapts a function to Reasoner.
type ReasonerFunc func(ctx context.Context, conv Conversation, tools []ToolSpec) (Message, error)

func (f ReasonerFunc) Reason(ctx context.Context, conv Conversation, tools []ToolSpec) (Message, error) {
	return f(ctx, conv, tools)
}

// ToolExecutorFunc adapts a function to ToolExecutor.
type ToolExecutorFunc func(ctx context.Context, call ToolCall) (ToolResult, error)

func (f ToolExecutorFunc) Execute(ctx context.Context, call ToolCall) (ToolResult, error) {
	return f(ctx, call)
}
