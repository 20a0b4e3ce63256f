package tracing

import (
	"github.com/honeycombio/honeycomb-opentelemetry-go"
	"github.com/honeycombio/otel-config-go/otelconfig"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var GlobalTracer = otel.Tracer("fittrack-backend")

// HoneycombSetup configures the OpenTelemetry SDK with the honeycomb distro.
// When disabled, the global no-op tracer provider stays in place and the
// returned shutdown func does nothing.
func HoneycombSetup(enabled bool, serviceName string) (func(), error) {
	if !enabled {
		return func() {}, nil
	}

	// baggage span processor copies baggage (e.g. the session-less request id) onto spans
	bsp := honeycomb.NewBaggageSpanProcessor()

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(serviceName),
		otelconfig.WithSpanProcessor(bsp),
	)
	if err != nil {
		return nil, err
	}

	log.Debugf("honeycomb tracing set up for service: %s", serviceName)
	return otelShutdown, nil
}

// EndSpanWithErrCheck marks the span as failed when err is set, and ends it.
func EndSpanWithErrCheck(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
	span.End()
}
