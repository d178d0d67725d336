package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-bridge/internal/events"
	"github.com/spec-kit/incident-bridge/internal/observability"
)

// AuditService records every synchronization outcome as a structured log
// line and a counter. It is the bridge's audit trail; nothing escapes
// un-logged.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to bridge events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventIncidentCreated, a.handleIncidentCreated)
	a.dispatcher.Subscribe(events.EventIncidentResolved, a.handleIncidentResolved)
	a.dispatcher.Subscribe(events.EventTicketPatched, a.handleTicketPatched)
	a.dispatcher.Subscribe(events.EventSyncSkipped, a.handleSyncSkipped)
	a.dispatcher.Subscribe(events.EventSyncRejected, a.handleSyncRejected)
}

func (a *AuditService) handleIncidentCreated(ctx context.Context, event events.Event) error {
	a.logger.Info("IncidentCreated",
		zap.String("correlation_key", event.CorrelationKey), zap.Any("payload", event.Payload))
	a.metrics.RecordOutcome("ticket_inbound", "incident_created")
	return nil
}

func (a *AuditService) handleIncidentResolved(ctx context.Context, event events.Event) error {
	a.logger.Info("IncidentResolved",
		zap.String("correlation_key", event.CorrelationKey), zap.Any("payload", event.Payload))
	a.metrics.RecordOutcome("ticket_inbound", "incident_resolved")
	return nil
}

func (a *AuditService) handleTicketPatched(ctx context.Context, event events.Event) error {
	a.logger.Info("TicketPatched",
		zap.String("correlation_key", event.CorrelationKey), zap.Any("payload", event.Payload))
	a.metrics.RecordOutcome("incident_inbound", "ticket_patched")
	return nil
}

func (a *AuditService) handleSyncSkipped(ctx context.Context, event events.Event) error {
	a.logger.Info("SyncSkipped",
		zap.String("correlation_key", event.CorrelationKey), zap.Any("payload", event.Payload))
	a.metrics.RecordOutcome("any", "skipped")
	return nil
}

func (a *AuditService) handleSyncRejected(ctx context.Context, event events.Event) error {
	a.logger.Warn("SyncRejected",
		zap.String("correlation_key", event.CorrelationKey), zap.Any("payload", event.Payload))
	a.metrics.RecordOutcome("any", "rejected")
	return nil
}
