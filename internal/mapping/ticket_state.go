package mapping

import "strings"

// Action is the alerting-side effect a ticket state maps to.
type Action int

const (
	ActionNone Action = iota
	ActionTrigger
	ActionResolve
)

func (a Action) String() string {
	switch a {
	case ActionTrigger:
		return "trigger"
	case ActionResolve:
		return "resolve"
	default:
		return "none"
	}
}

// TechnicalSupportBoard is the only board subject to the keyword gate.
const TechnicalSupportBoard = "Technical Support"

// statusActions maps every ticketing status the bridge reacts to onto its
// alerting action. Statuses absent from the table map to ActionNone. The
// vendor status vocabulary is a fixed enum; keeping this as one table keeps
// exhaustiveness checkable.
var statusActions = map[string]Action{
	// open / new
	"New":             ActionTrigger,
	"Open":            ActionTrigger,
	"Re-Opened":       ActionTrigger,
	"Assigned":        ActionTrigger,
	"In Progress":     ActionTrigger,
	"Scheduled":       ActionTrigger,
	"Needs Attention": ActionTrigger,
	"Escalated":       ActionTrigger,
	// closed / resolved
	">Closed":                  ActionResolve,
	"Closed":                   ActionResolve,
	"Completed":                ActionResolve,
	"Completed Successfully":   ActionResolve,
	"Resolved":                 ActionResolve,
	"Returned To Normal":       ActionResolve,
	"Cancelled":                ActionResolve,
	"Closed - Duplicate":       ActionResolve,
	"Closed - Resolved":        ActionResolve,
	"No Response - Auto Close": ActionResolve,
	"Auto-Closed":              ActionResolve,
}

// triggerKeywords gate Technical Support tickets: at least one must appear
// in the summary (case-insensitive) for the ticket to trigger an incident.
var triggerKeywords = []string{"down", "outage", "offline", "critical", "urgent"}

// StatusAction resolves the alerting action for a ticketing status name.
func StatusAction(statusName string) Action {
	return statusActions[statusName]
}

// TriggerStatuses returns the status names that map to ActionTrigger.
func TriggerStatuses() []string {
	return statusesFor(ActionTrigger)
}

// ResolveStatuses returns the status names that map to ActionResolve.
func ResolveStatuses() []string {
	return statusesFor(ActionResolve)
}

func statusesFor(action Action) []string {
	var names []string
	for name, a := range statusActions {
		if a == action {
			names = append(names, name)
		}
	}
	return names
}

// KeywordAdmits reports whether a ticket on the given board passes the
// keyword gate. Boards other than Technical Support always pass.
func KeywordAdmits(board, summary string) bool {
	if board != TechnicalSupportBoard {
		return true
	}
	lowered := strings.ToLower(summary)
	for _, kw := range triggerKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// PriorityBucket holds the alerting-side attributes of one priority band.
type PriorityBucket struct {
	Code    string
	Urgency string
}

// priorityBuckets are matched in order against the lower-cased priority
// name; the first keyword hit wins. Anything unmatched falls into P5.
var priorityBuckets = []struct {
	keyword string
	bucket  PriorityBucket
}{
	{"emergency", PriorityBucket{Code: "P1", Urgency: "high"}},
	{"critical", PriorityBucket{Code: "P2", Urgency: "high"}},
	{"high", PriorityBucket{Code: "P3", Urgency: "high"}},
	{"normal", PriorityBucket{Code: "P4", Urgency: "low"}},
}

// defaultBucket catches unrecognized priority names.
var defaultBucket = PriorityBucket{Code: "P5", Urgency: "low"}

// MapPriority buckets a ticketing priority name (for example
// "1a - Emergency") into a bridge priority code and urgency.
func MapPriority(priorityName string) PriorityBucket {
	lowered := strings.ToLower(priorityName)
	for _, entry := range priorityBuckets {
		if strings.Contains(lowered, entry.keyword) {
			return entry.bucket
		}
	}
	return defaultBucket
}

// UrgentCodes are the priority codes admitted under the strict policy.
var UrgentCodes = map[string]bool{"P1": true, "P2": true, "P3": true}
