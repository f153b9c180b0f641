package logging

import (
	"context"
	"log/slog"

	"ytanalyzer/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldBatchID identifies a scrape batch (8 hex characters).
	FieldBatchID = "batch_id"
	// FieldVideoID identifies a YouTube video.
	FieldVideoID = "video_id"
	// FieldCompetitorID identifies a competitor row.
	FieldCompetitorID = "competitor_id"
	// FieldOperation names the facade operation being served.
	FieldOperation = "operation"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]Attr, 0, 5)
	if id, ok := services.BatchIDFromContext(ctx); ok {
		fields = append(fields, BatchID(id))
	}
	if id, ok := services.VideoIDFromContext(ctx); ok {
		fields = append(fields, VideoID(id))
	}
	if id, ok := services.CompetitorIDFromContext(ctx); ok {
		fields = append(fields, CompetitorID(id))
	}
	if op, ok := services.OperationFromContext(ctx); ok {
		fields = append(fields, Operation(op))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, Correlation(rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
