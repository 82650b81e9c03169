package service

import (
	"context"
	"time"

	"loandesk-backend/internal/domain"
)

type AvailabilityService interface {
	// CheckAvailability reports, per asset, whether the asset is free for
	// [start, end]. Unknown asset ids resolve to false, never an error.
	// excludeApplicationID ignores that application's own bookings, for
	// re-checks during edits and extensions.
	CheckAvailability(ctx context.Context, assetIDs []int32, start, end time.Time, excludeApplicationID *int32) (map[int32]bool, error)
	GetAvailabilityCalendar(ctx context.Context, assetID int32, start, end time.Time) (*domain.AvailabilityCalendar, error)
	ReserveAsset(ctx context.Context, assetID, applicationID int32) (bool, error)
	ReleaseReservation(ctx context.Context, assetID, applicationID int32) (bool, error)
	GetAlternativeAssets(ctx context.Context, category string, start, end time.Time, limit int) ([]domain.Asset, error)
	// CalculateUtilizationRate returns the percentage of days in the
	// trailing window covered by an active-status loan, clamped to [0,100].
	CalculateUtilizationRate(ctx context.Context, assetID int32, windowDays int) (float64, error)
	InvalidateCalendar(ctx context.Context, assetID int32)
}

// CalendarCache is what the availability service expects from the cache
// layer; the redis implementation lives in internal/cache.
type CalendarCache interface {
	Get(ctx context.Context, assetID int32, start, end time.Time) (*domain.AvailabilityCalendar, bool)
	Set(ctx context.Context, cal *domain.AvailabilityCalendar, start, end time.Time)
	Invalidate(ctx context.Context, assetID int32)
}

type ApprovalMatrix interface {
	// RequiredGrade maps (applicant grade, request value) to the approver
	// grade the routing table demands.
	RequiredGrade(applicantGrade, valueCents int32) int32
	// DetermineApprover locates an eligible approver: exact required grade,
	// then the fallback grade, then any superuser. Returns
	// domain.ErrNoApproverAvailable when the directory has nobody.
	DetermineApprover(ctx context.Context, applicantGrade, valueCents int32) (*domain.User, error)
	CanUserApprove(user *domain.User, applicantGrade, valueCents int32) bool
}

type ApprovalService interface {
	// SendApprovalRequest routes the application, issues a fresh approval
	// token, moves it to UNDER_REVIEW and notifies the approver on both
	// channels (emailed link and portal).
	SendApprovalRequest(ctx context.Context, app *domain.LoanApplication) error
	// ValidateToken returns nil when the token may still gate a decision.
	// Failures are domain.ErrTokenInvalid or domain.ErrTokenExpired.
	ValidateToken(app *domain.LoanApplication, token string) error
	GetByToken(ctx context.Context, token string) (*domain.LoanApplication, error)
	ApproveByToken(ctx context.Context, token, comments string) (*domain.LoanApplication, error)
	DeclineByToken(ctx context.Context, token, reason string) (*domain.LoanApplication, error)
	ApproveAsUser(ctx context.Context, user *domain.User, applicationID int32, comments string) (*domain.LoanApplication, error)
	DeclineAsUser(ctx context.Context, user *domain.User, applicationID int32, reason string) (*domain.LoanApplication, error)
}

type CreateItemInput struct {
	AssetID  int32
	Quantity int32
}

type CreateApplicationInput struct {
	Applicant           domain.Applicant
	StartDate           time.Time
	EndDate             time.Time
	Location            string
	ReturnLocation      string
	Priority            domain.Priority
	SpecialInstructions string
	Items               []CreateItemInput
}

type ApplicationService interface {
	// CreateApplication persists a new application and its items in one
	// transaction, then sends the confirmation and routes it for approval.
	// A routing failure after commit is returned alongside the created
	// application.
	CreateApplication(ctx context.Context, input CreateApplicationInput) (*domain.LoanApplication, []domain.LoanItem, error)
	GetApplication(ctx context.Context, id int32) (*domain.LoanApplication, []domain.LoanItem, error)
	UpdateStatus(ctx context.Context, applicationID int32, newStatus domain.ApplicationStatus, note string) (*domain.LoanApplication, error)
	RequestExtension(ctx context.Context, applicationID int32, newEndDate time.Time, justification string) (*domain.LoanApplication, error)
	ClaimGuestApplication(ctx context.Context, applicationID int32, user *domain.User) error
	RecordItemIssuance(ctx context.Context, applicationID, itemID int32, conditionBefore, accessoriesIssued string) error
	RecordItemReturn(ctx context.Context, applicationID, itemID int32, conditionAfter, accessoriesReturned string) error
}

type ClaimService interface {
	FindClaimableSubmissions(ctx context.Context, user *domain.User) ([]domain.GuestSubmission, error)
	ClaimSubmission(ctx context.Context, user *domain.User, kind domain.SubmissionKind, id int32) error
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID int32) error
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// EmailService is the outbound half of the Notification Sender boundary.
// Delivery is fire-and-forget from the callers' perspective.
type EmailService interface {
	SendLoanApplicationConfirmation(ctx context.Context, app *domain.LoanApplication) error
	SendLoanStatusUpdate(ctx context.Context, app *domain.LoanApplication, previousStatus domain.ApplicationStatus) error
	SendApprovalRequest(ctx context.Context, app *domain.LoanApplication, approver *domain.User, link string) error
	SendReturnReminder(ctx context.Context, app *domain.LoanApplication) error
	SendSubmissionClaimed(ctx context.Context, email, name, reference string) error
}
