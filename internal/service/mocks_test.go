package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"loandesk-backend/internal/domain"
)

// MockAssetRepo
type MockAssetRepo struct {
	mock.Mock
}

func (m *MockAssetRepo) GetByID(ctx context.Context, id int32) (*domain.Asset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Asset), args.Error(1)
}
func (m *MockAssetRepo) GetByIDs(ctx context.Context, ids []int32) (map[int32]*domain.Asset, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int32]*domain.Asset), args.Error(1)
}
func (m *MockAssetRepo) ListByCategory(ctx context.Context, category string) ([]domain.Asset, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Asset), args.Error(1)
}
func (m *MockAssetRepo) TransitionStatus(ctx context.Context, id int32, from, to domain.AssetStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}
func (m *MockAssetRepo) ListReservedWithoutActiveApplication(ctx context.Context) ([]int32, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int32), args.Error(1)
}

// MockApplicationRepo
type MockApplicationRepo struct {
	mock.Mock
}

func (m *MockApplicationRepo) CreateWithItems(ctx context.Context, app *domain.LoanApplication, items []domain.LoanItem) error {
	args := m.Called(ctx, app, items)
	return args.Error(0)
}
func (m *MockApplicationRepo) GetByID(ctx context.Context, id int32) (*domain.LoanApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}
func (m *MockApplicationRepo) GetByNumber(ctx context.Context, number string) (*domain.LoanApplication, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}
func (m *MockApplicationRepo) GetByApprovalToken(ctx context.Context, token string) (*domain.LoanApplication, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}
func (m *MockApplicationRepo) Update(ctx context.Context, app *domain.LoanApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}
func (m *MockApplicationRepo) CountForMonth(ctx context.Context, year int, month time.Month) (int32, error) {
	args := m.Called(ctx, year, month)
	return args.Get(0).(int32), args.Error(1)
}
func (m *MockApplicationRepo) FindActiveBookings(ctx context.Context, assetID int32, excludeApplicationID *int32) ([]domain.Booking, error) {
	args := m.Called(ctx, assetID, excludeApplicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}
func (m *MockApplicationRepo) GetItems(ctx context.Context, applicationID int32) ([]domain.LoanItem, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanItem), args.Error(1)
}
func (m *MockApplicationRepo) UpdateItemCondition(ctx context.Context, item *domain.LoanItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}
func (m *MockApplicationRepo) ClaimForUser(ctx context.Context, applicationID, userID int32) (bool, error) {
	args := m.Called(ctx, applicationID, userID)
	return args.Bool(0), args.Error(1)
}
func (m *MockApplicationRepo) ListUnderReviewExpiringBefore(ctx context.Context, deadline time.Time) ([]domain.LoanApplication, error) {
	args := m.Called(ctx, deadline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanApplication), args.Error(1)
}
func (m *MockApplicationRepo) ListInUsePastEndDate(ctx context.Context, asOf time.Time) ([]domain.LoanApplication, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanApplication), args.Error(1)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) FindByRoleAndGrade(ctx context.Context, roles []domain.UserRole, grade int32) ([]domain.User, error) {
	args := m.Called(ctx, roles, grade)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}
func (m *MockUserRepo) FindByRole(ctx context.Context, roles []domain.UserRole) ([]domain.User, error) {
	args := m.Called(ctx, roles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int32), args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID int32) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockSubmissionRepo
type MockSubmissionRepo struct {
	mock.Mock
}

func (m *MockSubmissionRepo) ListUnclaimedByEmail(ctx context.Context, email string) ([]domain.GuestSubmission, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GuestSubmission), args.Error(1)
}
func (m *MockSubmissionRepo) Get(ctx context.Context, kind domain.SubmissionKind, id int32) (*domain.GuestSubmission, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GuestSubmission), args.Error(1)
}
func (m *MockSubmissionRepo) Claim(ctx context.Context, kind domain.SubmissionKind, id, userID int32) (bool, error) {
	args := m.Called(ctx, kind, id, userID)
	return args.Bool(0), args.Error(1)
}

// MockActivityRepo
type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) Create(ctx context.Context, event *domain.PortalActivity) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendLoanApplicationConfirmation(ctx context.Context, app *domain.LoanApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}
func (m *MockEmailService) SendLoanStatusUpdate(ctx context.Context, app *domain.LoanApplication, previousStatus domain.ApplicationStatus) error {
	args := m.Called(ctx, app, previousStatus)
	return args.Error(0)
}
func (m *MockEmailService) SendApprovalRequest(ctx context.Context, app *domain.LoanApplication, approver *domain.User, link string) error {
	args := m.Called(ctx, app, approver, link)
	return args.Error(0)
}
func (m *MockEmailService) SendReturnReminder(ctx context.Context, app *domain.LoanApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}
func (m *MockEmailService) SendSubmissionClaimed(ctx context.Context, email, name, reference string) error {
	args := m.Called(ctx, email, name, reference)
	return args.Error(0)
}

// MockAvailabilityService
type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) CheckAvailability(ctx context.Context, assetIDs []int32, start, end time.Time, excludeApplicationID *int32) (map[int32]bool, error) {
	args := m.Called(ctx, assetIDs, start, end, excludeApplicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int32]bool), args.Error(1)
}
func (m *MockAvailabilityService) GetAvailabilityCalendar(ctx context.Context, assetID int32, start, end time.Time) (*domain.AvailabilityCalendar, error) {
	args := m.Called(ctx, assetID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AvailabilityCalendar), args.Error(1)
}
func (m *MockAvailabilityService) ReserveAsset(ctx context.Context, assetID, applicationID int32) (bool, error) {
	args := m.Called(ctx, assetID, applicationID)
	return args.Bool(0), args.Error(1)
}
func (m *MockAvailabilityService) ReleaseReservation(ctx context.Context, assetID, applicationID int32) (bool, error) {
	args := m.Called(ctx, assetID, applicationID)
	return args.Bool(0), args.Error(1)
}
func (m *MockAvailabilityService) GetAlternativeAssets(ctx context.Context, category string, start, end time.Time, limit int) ([]domain.Asset, error) {
	args := m.Called(ctx, category, start, end, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Asset), args.Error(1)
}
func (m *MockAvailabilityService) CalculateUtilizationRate(ctx context.Context, assetID int32, windowDays int) (float64, error) {
	args := m.Called(ctx, assetID, windowDays)
	return args.Get(0).(float64), args.Error(1)
}
func (m *MockAvailabilityService) InvalidateCalendar(ctx context.Context, assetID int32) {
	m.Called(ctx, assetID)
}

// MockApprovalService
type MockApprovalService struct {
	mock.Mock
}

func (m *MockApprovalService) SendApprovalRequest(ctx context.Context, app *domain.LoanApplication) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}
func (m *MockApprovalService) ValidateToken(app *domain.LoanApplication, token string) error {
	args := m.Called(app, token)
	return args.Error(0)
}
func (m *MockApprovalService) GetByToken(ctx context.Context, token string) (*domain.LoanApplication, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}
func (m *MockApprovalService) ApproveByToken(ctx context.Context, token, comments string) (*domain.LoanApplication, error) {
	args := m.Called(ctx, token, comments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}
func (m *MockApprovalService) DeclineByToken(ctx context.Context, token, reason string) (*domain.LoanApplication, error) {
	args := m.Called(ctx, token, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}
func (m *MockApprovalService) ApproveAsUser(ctx context.Context, user *domain.User, applicationID int32, comments string) (*domain.LoanApplication, error) {
	args := m.Called(ctx, user, applicationID, comments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}
func (m *MockApprovalService) DeclineAsUser(ctx context.Context, user *domain.User, applicationID int32, reason string) (*domain.LoanApplication, error) {
	args := m.Called(ctx, user, applicationID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

// fakeCalendarCache is a no-op cache that records invalidations.
type fakeCalendarCache struct {
	mu          sync.Mutex
	invalidated []int32
}

func (f *fakeCalendarCache) Get(ctx context.Context, assetID int32, start, end time.Time) (*domain.AvailabilityCalendar, bool) {
	return nil, false
}

func (f *fakeCalendarCache) Set(ctx context.Context, cal *domain.AvailabilityCalendar, start, end time.Time) {
}

func (f *fakeCalendarCache) Invalidate(ctx context.Context, assetID int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, assetID)
}

func day(t string) time.Time {
	parsed, err := time.Parse("2006-01-02", t)
	if err != nil {
		panic(err)
	}
	return parsed
}
