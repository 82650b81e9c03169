package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"loandesk-backend/internal/clock"
	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/logger"
	"loandesk-backend/internal/repository"
)

// numberAttempts bounds the collision-retry loop for application numbers
// under concurrent creation within the same month.
const numberAttempts = 5

type applicationService struct {
	appRepo      repository.ApplicationRepository
	assetRepo    repository.AssetRepository
	userRepo     repository.UserRepository
	noteRepo     repository.NotificationRepository
	availability AvailabilityService
	approval     ApprovalService
	emailSvc     EmailService
	clk          clock.Clock
}

func NewApplicationService(
	appRepo repository.ApplicationRepository,
	assetRepo repository.AssetRepository,
	userRepo repository.UserRepository,
	noteRepo repository.NotificationRepository,
	availability AvailabilityService,
	approval ApprovalService,
	emailSvc EmailService,
	clk clock.Clock,
) ApplicationService {
	return &applicationService{
		appRepo:      appRepo,
		assetRepo:    assetRepo,
		userRepo:     userRepo,
		noteRepo:     noteRepo,
		availability: availability,
		approval:     approval,
		emailSvc:     emailSvc,
		clk:          clk,
	}
}

// CreateApplication validates the request, reserves every referenced asset
// and persists the application and its items in one transaction. Nothing
// survives a failed validation or a lost reservation race. The confirmation
// email and approval routing run after commit; a routing failure is returned
// together with the created application.
func (s *applicationService) CreateApplication(ctx context.Context, input CreateApplicationInput) (*domain.LoanApplication, []domain.LoanItem, error) {
	if len(input.Items) == 0 {
		return nil, nil, fmt.Errorf("at least one item is required: %w", domain.ErrInvalidRequest)
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, nil, fmt.Errorf("end date precedes start date: %w", domain.ErrInvalidRequest)
	}

	app := &domain.LoanApplication{
		Applicant:           input.Applicant,
		StartDate:           input.StartDate,
		EndDate:             input.EndDate,
		Location:            input.Location,
		ReturnLocation:      input.ReturnLocation,
		Priority:            input.Priority,
		SpecialInstructions: input.SpecialInstructions,
		Status:              domain.StatusSubmitted,
	}
	if app.Priority == "" {
		app.Priority = domain.PriorityNormal
	}
	if app.ReturnLocation == "" {
		app.ReturnLocation = app.Location
	}

	if err := s.resolveApplicant(ctx, app); err != nil {
		return nil, nil, err
	}

	assetIDs := make([]int32, 0, len(input.Items))
	for _, it := range input.Items {
		assetIDs = append(assetIDs, it.AssetID)
	}
	assets, err := s.assetRepo.GetByIDs(ctx, assetIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load assets: %w", err)
	}

	items := make([]domain.LoanItem, 0, len(input.Items))
	for _, it := range input.Items {
		asset, ok := assets[it.AssetID]
		if !ok {
			return nil, nil, fmt.Errorf("asset %d: %w", it.AssetID, domain.ErrAssetNotFound)
		}
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		item := domain.LoanItem{
			AssetID:        it.AssetID,
			Quantity:       qty,
			UnitValueCents: asset.ValueCents,
			LineTotalCents: qty * asset.ValueCents,
		}
		items = append(items, item)
		app.TotalValueCents += item.LineTotalCents
	}

	available, err := s.availability.CheckAvailability(ctx, assetIDs, app.StartDate, app.EndDate, nil)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range assetIDs {
		if !available[id] {
			return nil, nil, fmt.Errorf("asset %d for requested dates: %w", id, domain.ErrAssetUnavailable)
		}
	}

	if err := s.createWithFreshNumber(ctx, app, items); err != nil {
		return nil, nil, err
	}

	for _, id := range assetIDs {
		s.availability.InvalidateCalendar(ctx, id)
	}
	_ = s.emailSvc.SendLoanApplicationConfirmation(ctx, app)
	if userID, ok := app.Applicant.UserID(); ok {
		note := &domain.Notification{
			UserID:  userID,
			Title:   "Application submitted",
			Message: fmt.Sprintf("Loan application %s was submitted", app.ApplicationNumber),
			Attributes: map[string]string{
				"type":           "APPLICATION_SUBMITTED",
				"application_id": fmt.Sprintf("%d", app.ID),
			},
		}
		_ = s.noteRepo.Create(ctx, note)
	}

	logger.InfoContext(ctx, "Application created",
		"application", app.ApplicationNumber,
		"total_value_cents", app.TotalValueCents,
		"items", len(items))

	if err := s.approval.SendApprovalRequest(ctx, app); err != nil {
		// The application is committed; surface the routing failure to the
		// caller instead of pretending the submission is in review.
		return app, items, err
	}
	return app, items, nil
}

func (s *applicationService) resolveApplicant(ctx context.Context, app *domain.LoanApplication) error {
	if guest, ok := app.Applicant.Guest(); ok {
		if guest.Email == "" || guest.Name == "" {
			return fmt.Errorf("guest name and email are required: %w", domain.ErrInvalidRequest)
		}
		app.ApplicantName = guest.Name
		app.ApplicantEmail = guest.Email
		app.ApplicantGrade = guest.Grade
		return nil
	}
	userID, ok := app.Applicant.UserID()
	if !ok {
		return fmt.Errorf("applicant identity is required: %w", domain.ErrInvalidRequest)
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load applicant %d: %w", userID, err)
	}
	app.ApplicantName = user.Name
	app.ApplicantEmail = user.Email
	app.ApplicantGrade = user.Grade
	return nil
}

// createWithFreshNumber regenerates the month-scoped sequence and retries on
// a number collision, so two concurrent submissions in the same month never
// end up sharing an application number.
func (s *applicationService) createWithFreshNumber(ctx context.Context, app *domain.LoanApplication, items []domain.LoanItem) error {
	now := s.clk.Now()
	for attempt := 0; attempt < numberAttempts; attempt++ {
		count, err := s.appRepo.CountForMonth(ctx, now.Year(), now.Month())
		if err != nil {
			return fmt.Errorf("count applications: %w", err)
		}
		app.ApplicationNumber = FormatApplicationNumber(now, count+1+int32(attempt))

		err = s.appRepo.CreateWithItems(ctx, app, items)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrNumberConflict) {
			logger.Warn("Application number collision, retrying",
				"number", app.ApplicationNumber, "attempt", attempt+1)
			continue
		}
		return err
	}
	return fmt.Errorf("application number generation: %w", domain.ErrNumberConflict)
}

// FormatApplicationNumber renders LA{yyyy}{mm}{seq:04d}.
func FormatApplicationNumber(t time.Time, seq int32) string {
	return fmt.Sprintf("LA%04d%02d%04d", t.Year(), int(t.Month()), seq)
}

func (s *applicationService) GetApplication(ctx context.Context, id int32) (*domain.LoanApplication, []domain.LoanItem, error) {
	app, err := s.appRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.appRepo.GetItems(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return app, items, nil
}

// UpdateStatus transitions the application and notifies the applicant. The
// transition graph itself is guaranteed by the callers (approval workflow,
// issuance and return flows).
func (s *applicationService) UpdateStatus(ctx context.Context, applicationID int32, newStatus domain.ApplicationStatus, note string) (*domain.LoanApplication, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	previous := app.Status
	app.Status = newStatus
	if note != "" {
		app.SpecialInstructions = appendInstruction(app.SpecialInstructions, note)
	}
	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, fmt.Errorf("persist status change: %w", err)
	}

	items, err := s.appRepo.GetItems(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		switch newStatus {
		case domain.StatusIssued:
			if _, err := s.assetRepo.TransitionStatus(ctx, it.AssetID, domain.AssetStatusReserved, domain.AssetStatusLoaned); err != nil {
				logger.ErrorContext(ctx, "Failed to mark asset loaned", "asset_id", it.AssetID, "error", err)
			}
		case domain.StatusReturned, domain.StatusCompleted:
			if _, err := s.assetRepo.TransitionStatus(ctx, it.AssetID, domain.AssetStatusLoaned, domain.AssetStatusAvailable); err != nil {
				logger.ErrorContext(ctx, "Failed to mark asset available", "asset_id", it.AssetID, "error", err)
			}
		}
		if previous.Active() != newStatus.Active() {
			s.availability.InvalidateCalendar(ctx, it.AssetID)
		}
	}

	_ = s.emailSvc.SendLoanStatusUpdate(ctx, app, previous)
	if userID, ok := app.Applicant.UserID(); ok {
		n := &domain.Notification{
			UserID:  userID,
			Title:   fmt.Sprintf("Application %s", newStatus),
			Message: fmt.Sprintf("Loan application %s is now %s", app.ApplicationNumber, newStatus),
			Attributes: map[string]string{
				"type":           "STATUS_UPDATE",
				"application_id": fmt.Sprintf("%d", app.ID),
			},
		}
		_ = s.noteRepo.Create(ctx, n)
	}

	logger.InfoContext(ctx, "Application status updated",
		"application", app.ApplicationNumber,
		"from", previous, "to", newStatus)
	return app, nil
}

// RequestExtension is only meaningful while the loan is IN_USE. The new end
// date is re-checked against other bookings (the application's own booking
// is excluded) and the application goes back through approval.
func (s *applicationService) RequestExtension(ctx context.Context, applicationID int32, newEndDate time.Time, justification string) (*domain.LoanApplication, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusInUse {
		return nil, fmt.Errorf("extension requires an in-use loan: %w", domain.ErrInvalidTransition)
	}
	if newEndDate.Before(app.StartDate) {
		return nil, fmt.Errorf("extension end date precedes loan start: %w", domain.ErrInvalidRequest)
	}

	items, err := s.appRepo.GetItems(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	assetIDs := make([]int32, 0, len(items))
	for _, it := range items {
		assetIDs = append(assetIDs, it.AssetID)
	}
	available, err := s.availability.CheckAvailability(ctx, assetIDs, app.StartDate, newEndDate, &app.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range assetIDs {
		if !available[id] {
			return nil, fmt.Errorf("asset %d for extended dates: %w", id, domain.ErrAssetUnavailable)
		}
	}

	app.EndDate = newEndDate
	app.SpecialInstructions = appendInstruction(app.SpecialInstructions, fmt.Sprintf("Extension requested: %s", justification))

	// SendApprovalRequest persists the mutation together with the new
	// routing and token, and moves the application to UNDER_REVIEW.
	if err := s.approval.SendApprovalRequest(ctx, app); err != nil {
		return nil, err
	}
	for _, id := range assetIDs {
		s.availability.InvalidateCalendar(ctx, id)
	}
	return app, nil
}

// ClaimGuestApplication links a guest submission to an account once email
// ownership is verified.
func (s *applicationService) ClaimGuestApplication(ctx context.Context, applicationID int32, user *domain.User) error {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if _, linked := app.Applicant.UserID(); linked || !app.Applicant.IsGuest() {
		return domain.ErrAlreadyLinked
	}
	if !strings.EqualFold(user.Email, app.ApplicantEmail) {
		return domain.ErrEmailMismatch
	}

	ok, err := s.appRepo.ClaimForUser(ctx, applicationID, user.ID)
	if err != nil {
		return fmt.Errorf("link application: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyLinked
	}

	note := &domain.Notification{
		UserID:  user.ID,
		Title:   "Application linked",
		Message: fmt.Sprintf("Loan application %s is now linked to your account", app.ApplicationNumber),
		Attributes: map[string]string{
			"type":           "APPLICATION_CLAIMED",
			"application_id": fmt.Sprintf("%d", app.ID),
		},
	}
	_ = s.noteRepo.Create(ctx, note)
	_ = s.emailSvc.SendSubmissionClaimed(ctx, user.Email, user.Name, app.ApplicationNumber)

	logger.InfoContext(ctx, "Guest application claimed",
		"application", app.ApplicationNumber, "user_id", user.ID)
	return nil
}

func (s *applicationService) RecordItemIssuance(ctx context.Context, applicationID, itemID int32, conditionBefore, accessoriesIssued string) error {
	item, err := s.findItem(ctx, applicationID, itemID)
	if err != nil {
		return err
	}
	item.ConditionBefore = conditionBefore
	item.AccessoriesIssued = accessoriesIssued
	return s.appRepo.UpdateItemCondition(ctx, item)
}

func (s *applicationService) RecordItemReturn(ctx context.Context, applicationID, itemID int32, conditionAfter, accessoriesReturned string) error {
	item, err := s.findItem(ctx, applicationID, itemID)
	if err != nil {
		return err
	}
	item.ConditionAfter = conditionAfter
	item.AccessoriesReturned = accessoriesReturned
	return s.appRepo.UpdateItemCondition(ctx, item)
}

func (s *applicationService) findItem(ctx context.Context, applicationID, itemID int32) (*domain.LoanItem, error) {
	items, err := s.appRepo.GetItems(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == itemID {
			return &items[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func appendInstruction(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}
