package domain

import "time"

type SubmissionKind string

const (
	SubmissionKindLoan   SubmissionKind = "loan"
	SubmissionKindTicket SubmissionKind = "ticket"
)

// GuestSubmission is any request created without an account, identified by
// the guest's email until it is claimed.
type GuestSubmission struct {
	Kind        SubmissionKind `json:"kind"`
	ID          int32          `json:"id"`
	Reference   string         `json:"reference"`
	Subject     string         `json:"subject"`
	GuestName   string         `json:"guest_name"`
	GuestEmail  string         `json:"guest_email"`
	UserID      *int32         `json:"user_id,omitempty"`
	SubmittedOn time.Time      `json:"submitted_on"`
}

// PortalActivity is an audit/timeline event recorded for portal actions.
type PortalActivity struct {
	ID         int32             `json:"id"`
	UserID     int32             `json:"user_id"`
	Action     string            `json:"action"`
	Detail     string            `json:"detail"`
	Attributes map[string]string `json:"attributes"`
	CreatedOn  time.Time         `json:"created_on"`
}
