package audit

import (
	"context"

	"github.com/netrixframework/interop/log"
	"github.com/netrixframework/interop/types"
)

// LogSink writes events as structured log entries
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink on top of logger
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{
		logger: logger.With(log.LogParams{"service": "audit"}),
	}
}

// Record implements Sink
func (l *LogSink) Record(_ context.Context, event *types.InteropEvent) error {
	params := log.LogParams{
		"event_id":          event.ID,
		"message_id":        event.MessageID,
		"protocol":          event.Protocol,
		"direction":         event.Direction,
		"source":            event.SourceSystem,
		"validation_status": event.ValidationStatus,
		"status":            event.Status,
		"latency_ms":        event.LatencyMs,
	}
	if event.RoutedTo != nil {
		params["routed_to"] = *event.RoutedTo
	}
	if event.TargetSystem != "" {
		params["target"] = event.TargetSystem
	}
	if len(event.ValidationErrors) > 0 {
		params["validation_errors"] = event.ValidationErrors
	}
	if event.Error != "" {
		params["error"] = event.Error
	}

	logger := l.logger.With(params)
	switch event.Status {
	case types.ProcessingFailed:
		logger.Warn("Message delivery failed")
	case types.ProcessingRejected:
		logger.Info("Message rejected")
	default:
		logger.Info("Message processed")
	}
	return nil
}
