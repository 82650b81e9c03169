package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"loandesk-backend/internal/clock"
	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/service"
)

type approvalFixture struct {
	appRepo   *MockApplicationRepo
	assetRepo *MockAssetRepo
	noteRepo  *MockNotificationRepo
	userRepo  *MockUserRepo
	emailSvc  *MockEmailService
	cache     *fakeCalendarCache
	svc       service.ApprovalService
}

func newApprovalFixture(now time.Time) *approvalFixture {
	f := &approvalFixture{
		appRepo:   new(MockApplicationRepo),
		assetRepo: new(MockAssetRepo),
		noteRepo:  new(MockNotificationRepo),
		userRepo:  new(MockUserRepo),
		emailSvc:  new(MockEmailService),
		cache:     &fakeCalendarCache{},
	}
	matrix := service.NewApprovalMatrix(testApprovalConfig(), f.userRepo)
	f.svc = service.NewApprovalService(
		f.appRepo, f.assetRepo, f.noteRepo, matrix, f.emailSvc, f.cache,
		clock.Fixed(now), "https://loans.example.com", 7,
	)
	return f
}

func underReviewApplication(token string, expiry time.Time) *domain.LoanApplication {
	return &domain.LoanApplication{
		ID:                10,
		ApplicationNumber: "LA2026030001",
		Applicant:         domain.AuthenticatedApplicant(5),
		ApplicantName:     "Ada",
		ApplicantEmail:    "ada@example.com",
		ApplicantGrade:    41,
		StartDate:         day("2026-03-20"),
		EndDate:           day("2026-03-25"),
		Status:            domain.StatusUnderReview,
		TotalValueCents:   3000,
		ApprovalToken:     token,
		TokenExpiresAt:    &expiry,
	}
}

func TestApprovalService_SendApprovalRequest(t *testing.T) {
	ctx := context.Background()
	now := day("2026-03-15")
	f := newApprovalFixture(now)

	approver := domain.User{ID: 9, Name: "Grace", Email: "grace@example.com", Grade: 44, Role: domain.UserRoleApprover}
	f.userRepo.On("FindByRoleAndGrade", ctx, domain.ApproverRoles, int32(44)).Return([]domain.User{approver}, nil)
	f.appRepo.On("Update", ctx, mock.AnythingOfType("*domain.LoanApplication")).Return(nil)
	f.emailSvc.On("SendApprovalRequest", ctx, mock.Anything, mock.Anything, mock.MatchedBy(func(link string) bool {
		return strings.HasPrefix(link, "https://loans.example.com/approval/")
	})).Return(nil)
	f.noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

	app := &domain.LoanApplication{
		ApplicationNumber: "LA2026030001",
		ApplicantGrade:    41,
		TotalValueCents:   3000,
		Status:            domain.StatusSubmitted,
	}
	err := f.svc.SendApprovalRequest(ctx, app)
	assert.NoError(t, err)

	assert.Equal(t, domain.StatusUnderReview, app.Status)
	assert.Len(t, app.ApprovalToken, 64)
	assert.Equal(t, strings.ToLower(app.ApprovalToken), app.ApprovalToken, "token is lowercase hex")
	assert.NotNil(t, app.TokenExpiresAt)
	assert.Equal(t, now.Add(7*24*time.Hour), *app.TokenExpiresAt)
	assert.Equal(t, approver.ID, *app.ApproverID)
	f.appRepo.AssertExpectations(t)
}

func TestApprovalService_SendApprovalRequest_NoApprover(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(day("2026-03-15"))

	f.userRepo.On("FindByRoleAndGrade", ctx, domain.ApproverRoles, mock.Anything).Return([]domain.User{}, nil)
	f.userRepo.On("FindByRole", ctx, []domain.UserRole{domain.UserRoleSuperuser}).Return([]domain.User{}, nil)

	app := &domain.LoanApplication{ApplicantGrade: 41, TotalValueCents: 3000, Status: domain.StatusSubmitted}
	err := f.svc.SendApprovalRequest(ctx, app)
	assert.ErrorIs(t, err, domain.ErrNoApproverAvailable)
	assert.Equal(t, domain.StatusSubmitted, app.Status, "routing failure leaves the application untouched")
	assert.Empty(t, app.ApprovalToken)
	f.appRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestApprovalService_ValidateToken(t *testing.T) {
	now := day("2026-03-15")
	f := newApprovalFixture(now)
	token := strings.Repeat("ab", 32)

	t.Run("valid", func(t *testing.T) {
		app := underReviewApplication(token, now.Add(24*time.Hour))
		assert.NoError(t, f.svc.ValidateToken(app, token))
	})

	t.Run("mismatched token", func(t *testing.T) {
		app := underReviewApplication(token, now.Add(24*time.Hour))
		assert.ErrorIs(t, f.svc.ValidateToken(app, strings.Repeat("cd", 32)), domain.ErrTokenInvalid)
	})

	t.Run("empty token", func(t *testing.T) {
		app := underReviewApplication(token, now.Add(24*time.Hour))
		assert.ErrorIs(t, f.svc.ValidateToken(app, ""), domain.ErrTokenInvalid)
	})

	t.Run("consumed token is invalid, not expired", func(t *testing.T) {
		// Decision already taken: status moved on while expiry is still in
		// the future. Single use means the token can never validate again.
		app := underReviewApplication(token, now.Add(24*time.Hour))
		app.Status = domain.StatusApproved
		assert.ErrorIs(t, f.svc.ValidateToken(app, token), domain.ErrTokenInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		app := underReviewApplication(token, now.Add(-time.Minute))
		assert.ErrorIs(t, f.svc.ValidateToken(app, token), domain.ErrTokenExpired)
	})

	t.Run("expiry exactly now is expired", func(t *testing.T) {
		app := underReviewApplication(token, now)
		assert.ErrorIs(t, f.svc.ValidateToken(app, token), domain.ErrTokenExpired)
	})
}

func TestApprovalService_ApproveByToken(t *testing.T) {
	ctx := context.Background()
	now := day("2026-03-15")
	token := strings.Repeat("ab", 32)

	t.Run("success", func(t *testing.T) {
		f := newApprovalFixture(now)
		app := underReviewApplication(token, now.Add(24*time.Hour))
		f.appRepo.On("GetByApprovalToken", ctx, token).Return(app, nil)
		f.appRepo.On("Update", ctx, app).Return(nil)
		f.appRepo.On("GetItems", ctx, app.ID).Return([]domain.LoanItem{{ID: 1, AssetID: 3}}, nil)
		f.emailSvc.On("SendLoanStatusUpdate", ctx, app, domain.StatusUnderReview).Return(nil)
		f.noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

		got, err := f.svc.ApproveByToken(ctx, token, "looks fine")
		assert.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, got.Status)
		assert.Equal(t, "looks fine", got.DecisionComment)
		assert.Contains(t, f.cache.invalidated, int32(3))
		f.assetRepo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown token maps to invalid", func(t *testing.T) {
		f := newApprovalFixture(now)
		f.appRepo.On("GetByApprovalToken", ctx, token).Return(nil, domain.ErrNotFound)

		got, err := f.svc.ApproveByToken(ctx, token, "")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	})
}

func TestApprovalService_DeclineByToken_ReleasesReservations(t *testing.T) {
	ctx := context.Background()
	now := day("2026-03-15")
	token := strings.Repeat("ab", 32)

	f := newApprovalFixture(now)
	app := underReviewApplication(token, now.Add(24*time.Hour))
	f.appRepo.On("GetByApprovalToken", ctx, token).Return(app, nil)
	f.appRepo.On("Update", ctx, app).Return(nil)
	f.appRepo.On("GetItems", ctx, app.ID).Return([]domain.LoanItem{{ID: 1, AssetID: 3}, {ID: 2, AssetID: 4}}, nil)
	f.assetRepo.On("TransitionStatus", ctx, int32(3), domain.AssetStatusReserved, domain.AssetStatusAvailable).Return(true, nil)
	f.assetRepo.On("TransitionStatus", ctx, int32(4), domain.AssetStatusReserved, domain.AssetStatusAvailable).Return(true, nil)
	f.emailSvc.On("SendLoanStatusUpdate", ctx, app, domain.StatusUnderReview).Return(nil)
	f.noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

	got, err := f.svc.DeclineByToken(ctx, token, "not justified")
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
	assert.Equal(t, "not justified", got.RejectionReason)
	f.assetRepo.AssertExpectations(t)
	assert.ElementsMatch(t, []int32{3, 4}, f.cache.invalidated)
}

func TestApprovalService_PortalDecisions(t *testing.T) {
	ctx := context.Background()
	now := day("2026-03-15")
	token := strings.Repeat("ab", 32)
	reviewer := &domain.User{ID: 9, Grade: 44, Role: domain.UserRoleApprover}

	t.Run("approve through portal", func(t *testing.T) {
		f := newApprovalFixture(now)
		app := underReviewApplication(token, now.Add(24*time.Hour))
		f.appRepo.On("GetByID", ctx, app.ID).Return(app, nil)
		f.appRepo.On("Update", ctx, app).Return(nil)
		f.appRepo.On("GetItems", ctx, app.ID).Return([]domain.LoanItem{}, nil)
		f.emailSvc.On("SendLoanStatusUpdate", ctx, app, domain.StatusUnderReview).Return(nil)
		f.noteRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).Return(nil)

		got, err := f.svc.ApproveAsUser(ctx, reviewer, app.ID, "ok")
		assert.NoError(t, err)
		assert.Equal(t, domain.StatusApproved, got.Status)
	})

	t.Run("wrong grade is not authorized", func(t *testing.T) {
		f := newApprovalFixture(now)
		app := underReviewApplication(token, now.Add(24*time.Hour))
		f.appRepo.On("GetByID", ctx, app.ID).Return(app, nil)

		wrongGrade := &domain.User{ID: 8, Grade: 52, Role: domain.UserRoleApprover}
		_, err := f.svc.ApproveAsUser(ctx, wrongGrade, app.ID, "ok")
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	})

	t.Run("already decided is an invalid transition", func(t *testing.T) {
		f := newApprovalFixture(now)
		app := underReviewApplication(token, now.Add(24*time.Hour))
		app.Status = domain.StatusApproved
		f.appRepo.On("GetByID", ctx, app.ID).Return(app, nil)

		_, err := f.svc.DeclineAsUser(ctx, reviewer, app.ID, "no")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}
