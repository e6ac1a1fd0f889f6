// Package agent runs the bounded tool-calling loop.
//
// A Loop repeatedly asks a Reasoner for the next assistant message. When the
// message requests tools, every invocation is executed through a ToolExecutor
// and one tool message per invocation is appended before the Reasoner is
// asked again. The loop stops on a final answer, or once the activation
// counter exceeds the ceiling, in which case the TerminationNotice message is
// appended instead of an answer.
//
// States:
//
//	AWAITING_MODEL --final answer / ceiling--> DONE
//	AWAITING_MODEL --tool request-----------> EXECUTING_TOOLS
//	EXECUTING_TOOLS --all results appended--> AWAITING_MODEL
//
// The counter belongs to a single Run call, so one Loop may serve
// concurrent queries. Errors from the Reasoner or the ToolExecutor end the run
// and are returned wrapped in ReasoningError or ToolExecutionError; nothing is
// retried.
package agent
