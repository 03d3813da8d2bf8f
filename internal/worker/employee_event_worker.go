package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/events"
	"github.com/spec-kit/employee-service/internal/observability"
)

// StartEmployeeEventWorker subscribes the log and metrics handlers to every
// employee event.
func StartEmployeeEventWorker(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) {
	if dispatcher == nil {
		return
	}
	handler := employeeEventHandler(logger, metrics)
	for _, eventType := range []events.EventType{
		events.EventEmployeeCreated,
		events.EventEmployeeUpdated,
		events.EventEmployeeDeactivated,
	} {
		dispatcher.Subscribe(eventType, handler)
	}
}

func employeeEventHandler(logger *zap.Logger, metrics *observability.Metrics) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		metrics.RecordEmployeeEvent(string(event.Type))
		fields := []zap.Field{
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Int64("employee_id", event.EmployeeID),
			zap.Time("at", event.Timestamp),
		}
		if event.ActorID != nil {
			fields = append(fields, zap.Int64("actor_id", *event.ActorID))
		}
		if payload, ok := event.Payload.(events.EmployeeUpdatedPayload); ok {
			fields = append(fields, zap.Strings("fields", payload.Fields))
		}
		logger.Info("employee event", fields...)
		return nil
	}
}
