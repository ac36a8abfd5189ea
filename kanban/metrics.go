package kanban

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "weblabs/kanban"

// moveRequestMetrics tracks per-stage timing of a task move request and
// mirrors it onto an otel span.
type moveRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	decodeDuration time.Duration
	applyDuration  time.Duration
	unchanged      bool
	errorStage     string
}

func newMoveRequestMetrics(ctx context.Context, logger *log.Logger) (*moveRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, "kanban.task.move")
	return &moveRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *moveRequestMetrics) ObserveDecode(d time.Duration) {
	if d <= 0 {
		return
	}
	m.decodeDuration = d
}

func (m *moveRequestMetrics) ObserveApply(d time.Duration) {
	if d <= 0 {
		return
	}
	m.applyDuration = d
}

func (m *moveRequestMetrics) SetUnchanged(unchanged bool) {
	m.unchanged = unchanged
}

func (m *moveRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log emits the request summary and closes the span. Call exactly once per
// request.
func (m *moveRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	total := time.Since(m.start)
	fields := log.Fields{
		"route":     "/api/tasks/:id/move",
		"status":    status,
		"total_ms":  durationToMillis(total),
		"unchanged": m.unchanged,
	}
	if m.decodeDuration > 0 {
		fields["decode_ms"] = durationToMillis(m.decodeDuration)
	}
	if m.applyDuration > 0 {
		fields["apply_ms"] = durationToMillis(m.applyDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.Bool("kanban.move.unchanged", m.unchanged),
		attribute.Float64("kanban.move.total_ms", durationToMillis(total)),
	)
	if err != nil {
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.End()

	if m.logger != nil {
		m.logger.WithFields(fields).Info("kanban.move.metrics")
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
