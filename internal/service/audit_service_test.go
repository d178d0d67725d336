package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-bridge/internal/events"
	"github.com/spec-kit/incident-bridge/internal/observability"
)

func TestAuditServiceCountsOutcomes(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	audit := NewAuditService(dispatcher, zap.NewNop(), metrics)
	audit.RegisterHandlers()

	ctx := context.Background()
	publish := func(eventType events.EventType, payload any) {
		_ = dispatcher.Publish(ctx, events.Event{
			ID:        "evt",
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Payload:   payload,
		})
	}

	publish(events.EventIncidentCreated, events.IncidentCreatedPayload{IncidentID: "PD1", TicketID: 1})
	publish(events.EventIncidentCreated, events.IncidentCreatedPayload{IncidentID: "PD2", TicketID: 2})
	publish(events.EventIncidentResolved, events.IncidentResolvedPayload{IncidentID: "PD1", TicketID: 1})
	publish(events.EventTicketPatched, events.TicketPatchedPayload{TicketID: 1})
	publish(events.EventSyncSkipped, events.SyncSkippedPayload{Reason: "keyword gate"})
	publish(events.EventSyncRejected, events.SyncRejectedPayload{Reason: "invalid signature"})

	assert.Equal(t, int64(2), metrics.OutcomeCount("ticket_inbound", "incident_created"))
	assert.Equal(t, int64(1), metrics.OutcomeCount("ticket_inbound", "incident_resolved"))
	assert.Equal(t, int64(1), metrics.OutcomeCount("incident_inbound", "ticket_patched"))
	assert.Equal(t, int64(1), metrics.OutcomeCount("any", "skipped"))
	assert.Equal(t, int64(1), metrics.OutcomeCount("any", "rejected"))
}
