package events

import "time"

// EventType enumerates bridge event identifiers.
type EventType string

const (
	EventIncidentCreated  EventType = "incident_created"
	EventIncidentResolved EventType = "incident_resolved"
	EventTicketPatched    EventType = "ticket_patched"
	EventSyncSkipped      EventType = "sync_skipped"
	EventSyncRejected     EventType = "sync_rejected"
)

// Event represents one synchronization outcome emitted by the orchestrator.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	CorrelationKey string      `json:"correlation_key"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// IncidentCreatedPayload payload.
type IncidentCreatedPayload struct {
	IncidentID   string `json:"incident_id"`
	TicketID     int    `json:"ticket_id"`
	PriorityCode string `json:"priority_code"`
	Urgency      string `json:"urgency"`
}

// IncidentResolvedPayload payload.
type IncidentResolvedPayload struct {
	IncidentID string `json:"incident_id"`
	TicketID   int    `json:"ticket_id"`
}

// TicketPatchedPayload payload.
type TicketPatchedPayload struct {
	TicketID   int    `json:"ticket_id"`
	Status     string `json:"status,omitempty"`
	PriorityID int    `json:"priority_id,omitempty"`
	NoteKind   string `json:"note_kind,omitempty"`
}

// SyncSkippedPayload payload.
type SyncSkippedPayload struct {
	Reason   string `json:"reason"`
	TicketID int    `json:"ticket_id,omitempty"`
}

// SyncRejectedPayload payload.
type SyncRejectedPayload struct {
	Reason string `json:"reason"`
}
