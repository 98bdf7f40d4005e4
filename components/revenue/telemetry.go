package revenue

import (
	"context"

	"go.uber.org/zap"
)

// Telemetry event names recorded by controllers and sessions.
const (
	EventMount          = "revenue.chart.mount"
	EventMountError     = "revenue.chart.mount_error"
	EventSelectYear     = "revenue.chart.select_year"
	EventUnmount        = "revenue.chart.unmount"
	EventSessionExpired = "revenue.session.expired"
)

// Telemetry records chart events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

// TelemetryFunc adapts a plain function to Telemetry.
type TelemetryFunc func(ctx context.Context, event string, payload map[string]any)

// Record implements Telemetry.
func (fn TelemetryFunc) Record(ctx context.Context, event string, payload map[string]any) {
	if fn != nil {
		fn(ctx, event, payload)
	}
}

// DiscardTelemetry drops every event.
var DiscardTelemetry Telemetry = TelemetryFunc(nil)

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return DiscardTelemetry
	}
	return t
}

// NewLoggerTelemetry forwards telemetry events to logger at info level.
func NewLoggerTelemetry(logger *zap.Logger) Telemetry {
	if logger == nil {
		return DiscardTelemetry
	}
	return loggerTelemetry{logger: logger.Named("telemetry")}
}

type loggerTelemetry struct {
	logger *zap.Logger
}

func (t loggerTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	fields := make([]zap.Field, 0, len(payload))
	for key, value := range payload {
		fields = append(fields, zap.Any(key, value))
	}
	t.logger.Info(event, fields...)
}

func normalizeLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
