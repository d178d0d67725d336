package domain

import (
	"regexp"
	"strconv"
	"time"
)

// IncidentStatus enumerates lifecycle states on the alerting platform.
type IncidentStatus string

const (
	IncidentTriggered    IncidentStatus = "triggered"
	IncidentAcknowledged IncidentStatus = "acknowledged"
	IncidentResolved     IncidentStatus = "resolved"
)

// Incident is the alerting platform's incident. The bridge creates and
// transitions incidents but never deletes them.
type Incident struct {
	ID          string
	Status      IncidentStatus
	Urgency     string
	PriorityID  string
	Title       string
	ServiceID   string
	IncidentKey string
}

// IncidentNote is one entry of an incident's notes collection.
type IncidentNote struct {
	Content   string
	CreatedAt time.Time
}

var ticketRefPattern = regexp.MustCompile(`#(\d+)`)

// TicketRefFromTitle extracts the ticket ID referenced in an incident title
// (the first numeric token following '#'). The second return is false when
// the title carries no reference.
func TicketRefFromTitle(title string) (int, bool) {
	match := ticketRefPattern.FindStringSubmatch(title)
	if match == nil {
		return 0, false
	}
	id, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return id, true
}
