package domain

import "strconv"

// CorrelationKeyPrefix prefixes the ticket ID to build the cross-system key.
const CorrelationKeyPrefix = "CW-"

// Ticket is the service-desk ticket as delivered by webhooks or API reads.
// The ticketing platform owns it; the bridge only reads it and requests
// patches.
type Ticket struct {
	ID          int
	Board       string
	Status      string
	Priority    string
	Summary     string
	Description string
}

// CorrelationKey derives the stable key linking this ticket to its incident.
// It doubles as the incident's external key on the alerting platform, which
// makes incident lookups idempotent.
func (t Ticket) CorrelationKey() string {
	return CorrelationKeyPrefix + strconv.Itoa(t.ID)
}

// NoteKind classifies ticket notes on the ticketing platform.
type NoteKind int

const (
	NoteDetail NoteKind = iota
	NoteResolution
	NoteInternal
)

func (k NoteKind) String() string {
	switch k {
	case NoteDetail:
		return "detail"
	case NoteResolution:
		return "resolution"
	case NoteInternal:
		return "internal"
	default:
		return "unknown"
	}
}
