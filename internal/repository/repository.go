package repository

import (
	"context"
	"time"

	"loandesk-backend/internal/domain"
)

type AssetRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Asset, error)
	// GetByIDs returns the assets that exist; missing ids are simply absent
	// from the result.
	GetByIDs(ctx context.Context, ids []int32) (map[int32]*domain.Asset, error)
	ListByCategory(ctx context.Context, category string) ([]domain.Asset, error)
	// TransitionStatus performs an atomic conditional update. It reports
	// false when the asset's current status is not `from`.
	TransitionStatus(ctx context.Context, id int32, from, to domain.AssetStatus) (bool, error)
	// ListReservedWithoutActiveApplication finds assets stuck in RESERVED
	// whose owning application has left the approval pipeline.
	ListReservedWithoutActiveApplication(ctx context.Context) ([]int32, error)
}

type ApplicationRepository interface {
	// CreateWithItems persists the application, its items, and the
	// reservation of each referenced asset in a single transaction.
	// Returns domain.ErrNumberConflict when the application number is
	// already taken and domain.ErrAssetUnavailable when any asset is no
	// longer AVAILABLE; either way nothing is persisted.
	CreateWithItems(ctx context.Context, app *domain.LoanApplication, items []domain.LoanItem) error
	GetByID(ctx context.Context, id int32) (*domain.LoanApplication, error)
	GetByNumber(ctx context.Context, number string) (*domain.LoanApplication, error)
	GetByApprovalToken(ctx context.Context, token string) (*domain.LoanApplication, error)
	Update(ctx context.Context, app *domain.LoanApplication) error
	// CountForMonth counts applications created in the given year and month,
	// used to derive the next sequence number.
	CountForMonth(ctx context.Context, year int, month time.Month) (int32, error)
	// FindActiveBookings returns the bookings of active-status applications
	// holding the asset, optionally excluding one application.
	FindActiveBookings(ctx context.Context, assetID int32, excludeApplicationID *int32) ([]domain.Booking, error)
	GetItems(ctx context.Context, applicationID int32) ([]domain.LoanItem, error)
	UpdateItemCondition(ctx context.Context, item *domain.LoanItem) error
	// ClaimForUser links a guest application to an account. Reports false
	// when user_id was already set (conditional update, no lost race).
	ClaimForUser(ctx context.Context, applicationID, userID int32) (bool, error)
	ListUnderReviewExpiringBefore(ctx context.Context, deadline time.Time) ([]domain.LoanApplication, error)
	ListInUsePastEndDate(ctx context.Context, asOf time.Time) ([]domain.LoanApplication, error)
}

// UserRepository is the read-mostly approver directory plus portal accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByRoleAndGrade(ctx context.Context, roles []domain.UserRole, grade int32) ([]domain.User, error)
	FindByRole(ctx context.Context, roles []domain.UserRole) ([]domain.User, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}

type SubmissionRepository interface {
	// ListUnclaimedByEmail returns guest submissions of every kind whose
	// guest email matches and whose owner reference is still null.
	ListUnclaimedByEmail(ctx context.Context, email string) ([]domain.GuestSubmission, error)
	Get(ctx context.Context, kind domain.SubmissionKind, id int32) (*domain.GuestSubmission, error)
	// Claim links one submission to an account; false when already linked.
	Claim(ctx context.Context, kind domain.SubmissionKind, id, userID int32) (bool, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, event *domain.PortalActivity) error
}
