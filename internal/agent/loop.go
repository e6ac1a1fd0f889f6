package agent

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/sheetmailer/internal/instrumentation"
	"github.com/teemow/sheetmailer/internal/logging"
)

// DefaultCeiling is the number of activations allowed before a run is cut off.
const DefaultCeiling = 10

// State is a node of the loop's state machine.
type State string

const (
	StateAwaitingModel  State = "AWAITING_MODEL"
	StateExecutingTools State = "EXECUTING_TOOLS"
	StateDone           State = "DONE"
)

// StopReason records why a run reached DONE.
type StopReason string

const (
	StopFinalAnswer       StopReason = "final_answer"
	StopCeilingExceeded   StopReason = "ceiling_exceeded"
	StopTerminationNotice StopReason = "termination_notice"
	StopError             StopReason = "error"
)

// Result describes a finished run.
type Result struct {
	Conversation Conversation
	StopReason   StopReason

	// Activations counts counter increments, including the one that
	// exceeded the ceiling.
	Activations int
	// ReasonerCalls counts replies received from the reasoning service.
	ReasonerCalls  int
	ToolRounds     int
	ToolExecutions int

	// States lists every state entered, starting with AWAITING_MODEL.
	States []State
}

// Answer returns the content of the last message.
func (r *Result) Answer() string {
	last, _ := r.Conversation.Last()
	return last.Content
}

// Loop is safe for concurrent use; each Run owns its own state.
type Loop struct {
	reasoner    Reasoner
	executor    ToolExecutor
	tools       []ToolSpec
	ceiling     int
	parallelism int
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
}

// Option configures a Loop.
type Option func(*Loop)

// WithCeiling sets the activation ceiling. Values below 1 keep the default.
func WithCeiling(ceiling int) Option {
	return func(l *Loop) {
		if ceiling > 0 {
			l.ceiling = ceiling
		}
	}
}

// WithParallelTools executes up to n invocations of one turn concurrently.
// Results are still appended in request order.
func WithParallelTools(n int) Option {
	return func(l *Loop) {
		l.parallelism = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(l *Loop) {
		l.metrics = metrics
	}
}

// New returns a loop offering tools to reasoner and running them on executor.
func New(reasoner Reasoner, executor ToolExecutor, tools []ToolSpec, opts ...Option) *Loop {
	l := &Loop{
		reasoner:    reasoner,
		executor:    executor,
		tools:       append([]ToolSpec(nil), tools...),
		ceiling:     DefaultCeiling,
		parallelism: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.WithOperation(l.logger, "agent.run")
	return l
}

// Ceiling returns the configured activation ceiling.
func (l *Loop) Ceiling() int {
	return l.ceiling
}

// Tools returns the tool set offered on every activation.
func (l *Loop) Tools() []ToolSpec {
	return append([]ToolSpec(nil), l.tools...)
}

// Run drives conv to DONE. The input slice is not modified.
//
// On error the returned Result holds the conversation up to the failure.
func (l *Loop) Run(ctx context.Context, conv Conversation) (*Result, error) {
	if len(conv) == 0 {
		return nil, ErrEmptyConversation
	}

	start := time.Now()
	ctx, span := instrumentation.StartAgentSpan(ctx, l.ceiling)
	defer span.End()

	res := &Result{Conversation: conv.Clone()}
	err := l.drive(ctx, res)
	if err != nil {
		res.StopReason = StopError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	span.SetAttributes(
		attribute.String(instrumentation.SpanAttrStopReason, string(res.StopReason)),
		attribute.Int(instrumentation.SpanAttrIteration, res.Activations),
	)
	l.metrics.RecordAgentRun(ctx, string(res.StopReason), res.Activations, time.Since(start))
	l.logger.Debug("run finished",
		slog.String("stop_reason", string(res.StopReason)),
		slog.Int("activations", res.Activations),
		slog.Int("messages", len(res.Conversation)),
		logging.Err(err))

	return res, err
}

func (l *Loop) drive(ctx context.Context, res *Result) error {
	state := StateAwaitingModel
	counter := 0

	for {
		res.States = append(res.States, state)

		switch state {
		case StateAwaitingModel:
			counter++
			res.Activations = counter

			if counter > l.ceiling {
				res.Conversation = append(res.Conversation, TerminationMessage())
				res.StopReason = StopCeilingExceeded
				l.logger.Warn("iteration ceiling exceeded", logging.Iteration(counter), slog.Int("ceiling", l.ceiling))
				state = StateDone
				continue
			}

			msg, err := l.reason(ctx, res.Conversation, counter)
			if err != nil {
				return &ReasoningError{Activation: counter, Err: err}
			}
			res.ReasonerCalls++
			res.Conversation = append(res.Conversation, msg)

			switch msg.Outcome {
			case OutcomeToolRequest:
				state = StateExecutingTools
			case OutcomeTerminationNotice:
				res.StopReason = StopTerminationNotice
				state = StateDone
			default:
				res.StopReason = StopFinalAnswer
				state = StateDone
			}

		case StateExecutingTools:
			last, _ := res.Conversation.Last()
			results, err := l.executeAll(ctx, last.ToolCalls)
			if err != nil {
				return err
			}
			res.Conversation = append(res.Conversation, results...)
			res.ToolRounds++
			res.ToolExecutions += len(results)
			state = StateAwaitingModel

		case StateDone:
			return nil
		}
	}
}

func (l *Loop) reason(ctx context.Context, conv Conversation, activation int) (Message, error) {
	l.logger.Debug("asking reasoning service",
		logging.Iteration(activation),
		logging.State(string(StateAwaitingModel)),
		slog.Int("messages", len(conv)),
		slog.Int("tools", len(l.tools)))

	msg, err := l.reasoner.Reason(ctx, conv, l.tools)
	if err != nil {
		return Message{}, err
	}

	msg = classify(msg)
	l.logger.Debug("reasoning service replied",
		logging.Iteration(activation),
		slog.String("outcome", msg.Outcome.String()),
		slog.Int("tool_calls", len(msg.ToolCalls)))
	return msg, nil
}

// executeAll returns one tool message per call, in call order.
func (l *Loop) executeAll(ctx context.Context, calls []ToolCall) ([]Message, error) {
	results := make([]Message, len(calls))

	if l.parallelism <= 1 || len(calls) == 1 {
		for i, call := range calls {
			msg, err := l.execute(ctx, call)
			if err != nil {
				return nil, err
			}
			results[i] = msg
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism)
	for i, call := range calls {
		g.Go(func() error {
			msg, err := l.execute(gctx, call)
			if err != nil {
				return err
			}
			results[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (l *Loop) execute(ctx context.Context, call ToolCall) (Message, error) {
	logger := logging.WithTool(l.logger, call.Name)
	logger.Debug("executing tool", slog.String("call_id", call.ID))

	result, err := l.executor.Execute(ctx, call)
	if err != nil {
		logger.Debug("tool execution failed", logging.Err(err))
		return Message{}, &ToolExecutionError{Tool: call.Name, CallID: call.ID, Err: err}
	}
	if result.IsError {
		logger.Debug("tool reported an error", slog.String("content", logging.Truncate(result.Content, 200)))
	}
	return ToolResultMessage(call, result), nil
}
