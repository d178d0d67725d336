package dto

// NameRef is a named reference in the ticketing webhook payload.
type NameRef struct {
	Name string `json:"name"`
}

// ConnectWiseTicket is the ticket portion of the ticketing webhook.
type ConnectWiseTicket struct {
	ID       int     `json:"id"`
	Board    NameRef `json:"board"`
	Status   NameRef `json:"status"`
	Priority NameRef `json:"priority"`
	Summary  string  `json:"summary"`
}

// ConnectWiseEvent is the normalized inbound ticketing webhook payload.
type ConnectWiseEvent struct {
	Type   string            `json:"type"`
	Action string            `json:"action"`
	Ticket ConnectWiseTicket `json:"ticket"`
}
