package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/sheetmailer/internal/agent"
	"github.com/teemow/sheetmailer/internal/instrumentation"
	"github.com/teemow/sheetmailer/internal/logging"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Default models.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.5-flash"
)

// ErrEmptyResponse is returned when the API answers without any candidate.
var ErrEmptyResponse = errors.New("model returned no choices")

// Config selects and configures a provider.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	// SystemPrompt is sent ahead of the conversation when set.
	SystemPrompt string
}

// Provider is a Reasoner backed by a model API.
type Provider interface {
	agent.Reasoner
	Name() string
	Model() string
}

// New builds the provider named by cfg.Provider (openai when empty) and
// wraps it with metrics and tracing.
func New(ctx context.Context, cfg Config, metrics *instrumentation.Metrics, logger *slog.Logger) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s provider requires an API key", providerName(cfg.Provider))
	}

	var (
		p   Provider
		err error
	)
	switch providerName(cfg.Provider) {
	case ProviderOpenAI:
		p, err = NewOpenAI(cfg)
	case ProviderGemini:
		p, err = NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q, must be one of: openai, gemini", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return Instrument(p, metrics, logger), nil
}

func providerName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ProviderOpenAI
	}
	return name
}

// Instrument records a span, a metric and a debug line for every call.
func Instrument(p Provider, metrics *instrumentation.Metrics, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &instrumented{
		Provider: p,
		metrics:  metrics,
		logger:   logger.With(logging.Provider(p.Name()), slog.String("model", p.Model())),
	}
}

type instrumented struct {
	Provider
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

func (i *instrumented) Reason(ctx context.Context, conv agent.Conversation, tools []agent.ToolSpec) (agent.Message, error) {
	ctx, span := instrumentation.StartReasoningSpan(ctx, i.Name(), i.Model())
	defer span.End()

	start := time.Now()
	msg, err := i.Provider.Reason(ctx, conv, tools)
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	i.metrics.RecordReasoningCall(ctx, i.Name(), i.Model(), status, duration)
	i.logger.Debug("model call",
		logging.Status(status),
		slog.Duration(logging.KeyDuration, duration),
		slog.Int("tool_calls", len(msg.ToolCalls)),
		logging.Err(err))

	return msg, err
}
