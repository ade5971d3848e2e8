package tracing

import "go.opentelemetry.io/otel"

// GlobalTracer is a no-op unless an OpenTelemetry SDK with exporters is
// installed by the process at startup
var GlobalTracer = otel.Tracer("blogapp-backend")
