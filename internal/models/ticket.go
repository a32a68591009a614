// internal/models/ticket.go
package models

// Ticket is an incoming problem report. Immutable after submission.
type Ticket struct {
	ID          string `json:"ticketId"`
	Query       string `json:"query"`
	Department  string `json:"department"`
	NotifyEmail string `json:"notifyEmail,omitempty"`
}

// Assignment is the terminal success result: exactly one candidate plus a
// freshly generated assignment identifier.
type Assignment struct {
	TicketID string    `json:"ticketId"`
	Employee Candidate `json:"-"`
}

// OutcomeKind tags the single terminal outcome of a ticket.
type OutcomeKind string

const (
	OutcomeAssigned OutcomeKind = "assigned"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome is produced exactly once per ticket.
type Outcome struct {
	Kind       OutcomeKind
	Assignment *Assignment // set when Kind == OutcomeAssigned
	Reason     string      // set when Kind == OutcomeRejected
	Stage      string      // set when Kind == OutcomeFailed
	Cause      error       // set when Kind == OutcomeFailed
}
