package qrisk

import (
	"context"
	"io"

	"github.com/hashicorp/go-hclog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// stageLogger reports every finished span through the CLI logger.
type stageLogger struct {
	log hclog.Logger
}

func (s stageLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (s stageLogger) OnEnd(span sdktrace.ReadOnlySpan) {
	args := []any{"stage", span.Name(), "duration", span.EndTime().Sub(span.StartTime())}
	if st := span.Status(); st.Description != "" {
		args = append(args, "error", st.Description)
	}
	s.log.Info("span", args...)
}

func (s stageLogger) Shutdown(context.Context) error   { return nil }
func (s stageLogger) ForceFlush(context.Context) error { return nil }

// newTracer returns nil unless --trace is set, leaving the engine on the
// global no-op provider. The returned func shuts the provider down.
func newTracer(w io.Writer) (trace.Tracer, func()) {
	if !flagTrace {
		return nil, func() {}
	}
	tl := hclog.New(&hclog.LoggerOptions{Name: "qrisk.trace", Level: hclog.Info, Output: w, DisableTime: true})
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(stageLogger{log: tl}))
	return tp.Tracer("github.com/hqc-securechain/qrisk"), func() { _ = tp.Shutdown(context.Background()) }
}
