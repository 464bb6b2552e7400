package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/prebuildkit/prebuild/pkg/engine"
)

// Telemetry combines logging, tracing and metrics for one process.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Config:  cfg,
	}, nil
}

// Shutdown flushes pending spans and writes the metrics textfile.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	metricsErr := t.Metrics.WriteTextfile()
	tracerErr := t.Tracer.Shutdown(ctx)
	return errors.Join(metricsErr, tracerErr)
}

// Observer returns an engine observer that records a span and phase
// metrics for every phase, and a counter for every warning.
func (t *Telemetry) Observer() engine.Observer {
	return &runObserver{tracer: t.Tracer, metrics: t.Metrics}
}

// InstrumentApply wraps an apply run in a root span and records the run
// metrics from its report.
func (t *Telemetry) InstrumentApply(ctx context.Context, projectRoot string, apply func(ctx context.Context) (*engine.Report, error)) (*engine.Report, error) {
	ctx, span := t.Tracer.StartRunSpan(ctx, projectRoot)
	defer span.End()

	t.Metrics.RecordRunStarted()
	timer := NewTimer()

	report, err := apply(ctx)

	phase := string(engine.PhaseFailed)
	if report != nil {
		phase = string(report.Phase)
		span.SetAttributes(
			AttrRunID.String(report.RunID.String()),
			AttrWarnings.Int(len(report.Warnings)),
		)
	}
	t.Metrics.RecordRunCompleted(phase, timer.Duration())

	if err != nil {
		var engErr *engine.EngineError
		if errors.As(err, &engErr) {
			t.Metrics.RecordError(string(engErr.Class), engErr.Code)
			span.SetAttributes(AttrErrorClass.String(string(engErr.Class)), AttrErrorCode.String(engErr.Code))
		}
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}

	logger := t.Logger
	if l, ok := ctx.Value(loggerContextKey{}).(*Logger); ok {
		logger = l
	}
	logger = logger.WithProjectRoot(projectRoot)
	if report != nil {
		logger = logger.WithRunID(report.RunID.String())
	}
	if traceID := TraceID(ctx); traceID != "" {
		logger = logger.WithField("trace_id", traceID)
	}
	logger.Debug("Apply run instrumented")
	return report, err
}

type runObserver struct {
	tracer  *Tracer
	metrics *Metrics
}

func (o *runObserver) PhaseStarted(ctx context.Context, phase engine.Phase) (context.Context, func(error)) {
	ctx, span := o.tracer.StartPhaseSpan(ctx, string(phase))
	started := time.Now()
	return ctx, func(err error) {
		status := "succeeded"
		if err != nil {
			status = "failed"
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		o.metrics.RecordPhase(string(phase), status, time.Since(started))
		span.End()
	}
}

func (o *runObserver) WarningRecorded(ctx context.Context, w engine.Warning) {
	o.metrics.RecordWarning(w.Platform, w.Tag)
	o.metrics.RecordError(string(engine.ErrorClassIsolated), "")
	trace.SpanFromContext(ctx).AddEvent("warning", trace.WithAttributes(
		AttrWarningTag.String(w.Tag),
	))
}
