package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans installs a recording tracer provider for the duration of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	return recorder
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("sheets_get_values").
		WithService(ServiceSheets).
		WithOperation(OperationGet).
		WithConnection("conn-1").
		WithIteration(2).
		WithReadOnly(true).
		Build()

	require.Len(t, attrs, 6)

	v, ok := attrValue(attrs, SpanAttrConnection)
	require.True(t, ok)
	assert.Equal(t, "conn-1", v.AsString())

	v, ok = attrValue(attrs, SpanAttrIteration)
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt64())
}

func TestSpanAttributeBuilder_EmptyConnection(t *testing.T) {
	attrs := NewSpanAttributeBuilder().WithTool("gmail_send_email").WithConnection("").Build()
	assert.Len(t, attrs, 1)
}

func TestStartToolSpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartToolSpan(context.Background(), "gmail_send_email")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "tool.gmail_send_email", ended[0].Name())
	assert.Equal(t, trace.SpanKindServer, ended[0].SpanKind())

	v, ok := attrValue(ended[0].Attributes(), SpanAttrTool)
	require.True(t, ok)
	assert.Equal(t, "gmail_send_email", v.AsString())
}

func TestStartGoogleAPISpan(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartGoogleAPISpan(context.Background(), ServiceSheets, OperationGet)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "google.sheets.get", ended[0].Name())
	assert.Equal(t, trace.SpanKindClient, ended[0].SpanKind())
}

func TestStartAgentAndReasoningSpans(t *testing.T) {
	recorder := recordSpans(t)

	ctx, run := StartAgentSpan(context.Background(), 10)
	_, call := StartReasoningSpan(ctx, "openai", "gpt-4o-mini")
	call.End()
	run.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "llm.openai", ended[0].Name())
	assert.Equal(t, "agent.run", ended[1].Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
}

func TestSetSpanError(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "failing")
	SetSpanError(span, errors.New("boom"))
	SetSpanError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
}

func TestSetSpanSuccessAndEvent(t *testing.T) {
	recorder := recordSpans(t)

	_, span := StartSpan(context.Background(), "ok")
	AddSpanEvent(span, "tool_round", attribute.Int("tools", 2))
	SetSpanSuccess(span)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "tool_round", ended[0].Events()[0].Name)
}

func TestTraceIDs(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))

	recordSpans(t)
	ctx, span := StartSpan(context.Background(), "ids")
	defer span.End()

	assert.Len(t, GetTraceID(ctx), 32)
	assert.Len(t, GetSpanID(ctx), 16)
}
