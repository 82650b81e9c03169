package domain

import "time"

// ApplicationStatus is the lifecycle state of a loan application.
type ApplicationStatus string

const (
	StatusSubmitted     ApplicationStatus = "SUBMITTED"
	StatusUnderReview   ApplicationStatus = "UNDER_REVIEW"
	StatusApproved      ApplicationStatus = "APPROVED"
	StatusRejected      ApplicationStatus = "REJECTED"
	StatusReadyIssuance ApplicationStatus = "READY_ISSUANCE"
	StatusIssued        ApplicationStatus = "ISSUED"
	StatusInUse         ApplicationStatus = "IN_USE"
	StatusReturned      ApplicationStatus = "RETURNED"
	StatusCompleted     ApplicationStatus = "COMPLETED"
)

// ActiveStatuses are the statuses whose date ranges block other loans of
// the same asset. Submitted and under-review applications do not hold
// dates; rejected, returned and completed ones have released them.
var ActiveStatuses = []ApplicationStatus{
	StatusApproved,
	StatusReadyIssuance,
	StatusIssued,
	StatusInUse,
}

// Active reports whether the status occupies its asset's dates.
func (s ApplicationStatus) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// GuestContact is the identity a guest supplies in place of an account.
type GuestContact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	StaffID  string `json:"staff_id,omitempty"`
	Grade    int32  `json:"grade,omitempty"`
	Division string `json:"division,omitempty"`
}

// Applicant is either an authenticated account holder or a guest contact.
// A claimed guest submission carries both: the original contact details
// plus the account it was linked to. The zero value has neither and is
// rejected by validation.
type Applicant struct {
	userID int32
	linked bool
	guest  *GuestContact
}

func AuthenticatedApplicant(userID int32) Applicant {
	return Applicant{userID: userID, linked: true}
}

func GuestApplicant(contact GuestContact) Applicant {
	c := contact
	return Applicant{guest: &c}
}

func (a Applicant) IsGuest() bool {
	return a.guest != nil
}

// UserID returns the linked account id, if any.
func (a Applicant) UserID() (int32, bool) {
	return a.userID, a.linked
}

// Guest returns the guest contact details, if any.
func (a Applicant) Guest() (GuestContact, bool) {
	if a.guest == nil {
		return GuestContact{}, false
	}
	return *a.guest, true
}

// LinkAccount attaches an account to a guest applicant, keeping the
// original contact snapshot.
func (a Applicant) LinkAccount(userID int32) Applicant {
	a.userID = userID
	a.linked = true
	return a
}

// LoanApplication is the aggregate root of the lending workflow. The
// applicant_* fields snapshot the identity at submission time so the
// record stays stable if the account changes later.
type LoanApplication struct {
	ID                  int32             `json:"id"`
	ApplicationNumber   string            `json:"application_number"`
	Applicant           Applicant         `json:"-"`
	ApplicantName       string            `json:"applicant_name"`
	ApplicantEmail      string            `json:"applicant_email"`
	ApplicantGrade      int32             `json:"applicant_grade"`
	StartDate           time.Time         `json:"start_date"`
	EndDate             time.Time         `json:"end_date"`
	Location            string            `json:"location"`
	ReturnLocation      string            `json:"return_location"`
	Status              ApplicationStatus `json:"status"`
	Priority            Priority          `json:"priority"`
	TotalValueCents     int32             `json:"total_value_cents"`
	ApprovalToken       string            `json:"-"`
	TokenExpiresAt      *time.Time        `json:"-"`
	ApproverID          *int32            `json:"approver_id,omitempty"`
	DecisionComment     string            `json:"decision_comment,omitempty"`
	RejectionReason     string            `json:"rejection_reason,omitempty"`
	SpecialInstructions string            `json:"special_instructions,omitempty"`
	CreatedOn           time.Time         `json:"created_on"`
	UpdatedOn           time.Time         `json:"updated_on"`
}
