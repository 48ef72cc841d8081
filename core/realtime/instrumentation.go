package realtime

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/aiproxy-core/core/realtime"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	messagesReceived, _ = meter.Int64Counter("realtime.messages.received",
		metric.WithDescription("Inbound messages read from the session stream"))
	messagesSent, _ = meter.Int64Counter("realtime.messages.sent",
		metric.WithDescription("Outbound commands accepted by the session stream"))
	decodeFailures, _ = meter.Int64Counter("realtime.decode.failures",
		metric.WithDescription("Inbound messages or audio deltas that could not be decoded"))
)
