package mapping

import "github.com/spec-kit/incident-bridge/internal/domain"

// Alerting webhook event types the bridge reacts to.
const (
	EventIncidentResolved     = "incident.resolved"
	EventIncidentAcknowledged = "incident.acknowledged"
	EventIncidentAnnotated    = "incident.annotated"
)

// Ticketing statuses written back when incidents transition.
const (
	TicketStatusReturnedToNormal = "Returned To Normal"
	TicketStatusAcknowledged     = "Acknowledged"
)

// PriorityRef identifies a ticketing priority by name and numeric ID.
type PriorityRef struct {
	ID   int
	Name string
}

// ticketPriorities maps bridge priority codes onto the ticketing platform's
// fixed priority records.
var ticketPriorities = map[string]PriorityRef{
	"P1": {ID: 7, Name: "Priority 1 - Emergency Response"},
	"P2": {ID: 8, Name: "Priority 2 - Quick Response"},
	"P3": {ID: 9, Name: "Priority 3 - Normal Response"},
	"P4": {ID: 10, Name: "Priority 4 - Scheduled Maintenance"},
	"P5": {ID: 11, Name: "Priority 5 - Low"},
}

// TicketPriorityFor resolves the ticketing priority record for a bridge
// priority code. The second return is false for unknown codes, which the
// caller treats as "no priority patch", not an error.
func TicketPriorityFor(code string) (PriorityRef, bool) {
	ref, ok := ticketPriorities[code]
	return ref, ok
}

// EventPatch is the ticketing-side effect of one alerting event.
type EventPatch struct {
	Status    string
	Priority  *PriorityRef
	WantsNote bool
	NoteKind  domain.NoteKind
}

// MapIncidentEvent computes the ticket patch for a lifecycle event.
// priorityCode is the bridge code resolved from the incident's priority
// reference; pass "" when the incident carries no known priority. Unhandled
// event types yield a zero patch.
func MapIncidentEvent(eventType, priorityCode string) EventPatch {
	var patch EventPatch
	switch eventType {
	case EventIncidentResolved:
		patch.Status = TicketStatusReturnedToNormal
		patch.WantsNote = true
		patch.NoteKind = domain.NoteResolution
	case EventIncidentAcknowledged:
		patch.Status = TicketStatusAcknowledged
	default:
		return patch
	}
	if ref, ok := TicketPriorityFor(priorityCode); ok {
		patch.Priority = &ref
	}
	return patch
}
