package google

import (
	"context"
	"time"

	"github.com/teemow/sheetmailer/internal/instrumentation"
)

// Observe runs one Google API call inside a span and records its outcome.
func Observe(ctx context.Context, metrics *instrumentation.Metrics, service, operation string, call func(context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, service, operation)
	defer span.End()

	start := time.Now()
	err := call(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	metrics.RecordGoogleAPIOperation(ctx, service, operation, status, time.Since(start))
	return err
}
