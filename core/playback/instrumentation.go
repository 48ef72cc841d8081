package playback

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/aiproxy-core/core/playback"

var (
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	segmentsPlayed, _ = meter.Int64Counter("playback.segments.played",
		metric.WithDescription("Segments that finished playing"))
	segmentsDropped, _ = meter.Int64Counter("playback.segments.dropped",
		metric.WithDescription("Segments dropped because the sink failed to activate them or the queue was cleared"))
)
