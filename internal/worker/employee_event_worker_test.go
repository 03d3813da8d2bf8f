package worker

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/employee-service/internal/events"
	"github.com/spec-kit/employee-service/internal/observability"
)

func TestStartEmployeeEventWorker(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	StartEmployeeEventWorker(dispatcher, zap.New(core), metrics)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID:         "e1",
		Type:       events.EventEmployeeUpdated,
		EmployeeID: 4,
		Payload:    events.EmployeeUpdatedPayload{Fields: []string{"position"}},
	}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		ID:         "e2",
		Type:       events.EventEmployeeCreated,
		EmployeeID: 5,
	}))

	entries := logs.FilterMessage("employee event").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(4), entries[0].ContextMap()["employee_id"])

	count, err := testutil.GatherAndCount(metrics.Registry(), "employee_service_employees_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStartEmployeeEventWorker_NilDispatcher(t *testing.T) {
	assert.NotPanics(t, func() {
		StartEmployeeEventWorker(nil, zap.NewNop(), nil)
	})
}
