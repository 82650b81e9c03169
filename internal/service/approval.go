package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"loandesk-backend/internal/clock"
	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/logger"
	"loandesk-backend/internal/repository"
	"loandesk-backend/internal/security"
)

type approvalService struct {
	appRepo     repository.ApplicationRepository
	assetRepo   repository.AssetRepository
	noteRepo    repository.NotificationRepository
	matrix      ApprovalMatrix
	emailSvc    EmailService
	cache       CalendarCache
	clk         clock.Clock
	linkBaseURL string
	tokenTTL    time.Duration
}

func NewApprovalService(
	appRepo repository.ApplicationRepository,
	assetRepo repository.AssetRepository,
	noteRepo repository.NotificationRepository,
	matrix ApprovalMatrix,
	emailSvc EmailService,
	cache CalendarCache,
	clk clock.Clock,
	linkBaseURL string,
	tokenTTLDays int,
) ApprovalService {
	return &approvalService{
		appRepo:     appRepo,
		assetRepo:   assetRepo,
		noteRepo:    noteRepo,
		matrix:      matrix,
		emailSvc:    emailSvc,
		cache:       cache,
		clk:         clk,
		linkBaseURL: linkBaseURL,
		tokenTTL:    time.Duration(tokenTTLDays) * 24 * time.Hour,
	}
}

// SendApprovalRequest routes the application per the approval matrix, issues
// a fresh single-use token and hands off to both channels. A routing failure
// leaves the application untouched.
func (s *approvalService) SendApprovalRequest(ctx context.Context, app *domain.LoanApplication) error {
	approver, err := s.matrix.DetermineApprover(ctx, app.ApplicantGrade, app.TotalValueCents)
	if err != nil {
		return fmt.Errorf("route application %s: %w", app.ApplicationNumber, err)
	}

	token, err := security.NewApprovalToken()
	if err != nil {
		return err
	}
	expiry := s.clk.Now().Add(s.tokenTTL)

	app.ApprovalToken = token
	app.TokenExpiresAt = &expiry
	app.ApproverID = &approver.ID
	app.Status = domain.StatusUnderReview
	if err := s.appRepo.Update(ctx, app); err != nil {
		return fmt.Errorf("persist approval routing: %w", err)
	}

	link := fmt.Sprintf("%s/approval/%s", s.linkBaseURL, token)
	_ = s.emailSvc.SendApprovalRequest(ctx, app, approver, link)

	note := &domain.Notification{
		UserID:  approver.ID,
		Title:   "Approval requested",
		Message: fmt.Sprintf("Loan application %s from %s awaits your decision", app.ApplicationNumber, app.ApplicantName),
		Attributes: map[string]string{
			"type":           "APPROVAL_REQUEST",
			"application_id": fmt.Sprintf("%d", app.ID),
		},
	}
	_ = s.noteRepo.Create(ctx, note)

	logger.InfoContext(ctx, "Approval requested",
		"application", app.ApplicationNumber,
		"approver_id", approver.ID,
		"approver_grade", approver.Grade)
	return nil
}

// ValidateToken enforces single-use semantics: once the application leaves
// UNDER_REVIEW the token can never validate again, even before its expiry.
func (s *approvalService) ValidateToken(app *domain.LoanApplication, token string) error {
	if app.ApprovalToken == "" || token == "" {
		return domain.ErrTokenInvalid
	}
	if subtle.ConstantTimeCompare([]byte(app.ApprovalToken), []byte(token)) != 1 {
		return domain.ErrTokenInvalid
	}
	if app.Status != domain.StatusUnderReview {
		return domain.ErrTokenInvalid
	}
	if app.TokenExpiresAt == nil || !s.clk.Now().Before(*app.TokenExpiresAt) {
		return domain.ErrTokenExpired
	}
	return nil
}

func (s *approvalService) GetByToken(ctx context.Context, token string) (*domain.LoanApplication, error) {
	app, err := s.appRepo.GetByApprovalToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, err
	}
	return app, nil
}

func (s *approvalService) ApproveByToken(ctx context.Context, token, comments string) (*domain.LoanApplication, error) {
	app, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateToken(app, token); err != nil {
		return nil, err
	}
	return app, s.decide(ctx, app, true, comments)
}

func (s *approvalService) DeclineByToken(ctx context.Context, token, reason string) (*domain.LoanApplication, error) {
	app, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.ValidateToken(app, token); err != nil {
		return nil, err
	}
	return app, s.decide(ctx, app, false, reason)
}

// ApproveAsUser performs the identical transition through the portal channel:
// authenticated reviewer identity substitutes for token possession.
func (s *approvalService) ApproveAsUser(ctx context.Context, user *domain.User, applicationID int32, comments string) (*domain.LoanApplication, error) {
	app, err := s.portalApplication(ctx, user, applicationID)
	if err != nil {
		return nil, err
	}
	return app, s.decide(ctx, app, true, comments)
}

func (s *approvalService) DeclineAsUser(ctx context.Context, user *domain.User, applicationID int32, reason string) (*domain.LoanApplication, error) {
	app, err := s.portalApplication(ctx, user, applicationID)
	if err != nil {
		return nil, err
	}
	return app, s.decide(ctx, app, false, reason)
}

func (s *approvalService) portalApplication(ctx context.Context, user *domain.User, applicationID int32) (*domain.LoanApplication, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != domain.StatusUnderReview {
		return nil, domain.ErrInvalidTransition
	}
	if !s.matrix.CanUserApprove(user, app.ApplicantGrade, app.TotalValueCents) {
		return nil, domain.ErrNotAuthorized
	}
	return app, nil
}

func (s *approvalService) decide(ctx context.Context, app *domain.LoanApplication, approved bool, comment string) error {
	previous := app.Status
	if approved {
		app.Status = domain.StatusApproved
		app.DecisionComment = comment
	} else {
		app.Status = domain.StatusRejected
		app.RejectionReason = comment
	}

	if err := s.appRepo.Update(ctx, app); err != nil {
		return fmt.Errorf("persist decision: %w", err)
	}

	items, err := s.appRepo.GetItems(ctx, app.ID)
	if err != nil {
		return err
	}
	for _, it := range items {
		// A fresh APPROVED booking starts blocking availability; a
		// rejection frees the reservation.
		if !approved {
			if _, err := s.assetRepo.TransitionStatus(ctx, it.AssetID, domain.AssetStatusReserved, domain.AssetStatusAvailable); err != nil {
				logger.ErrorContext(ctx, "Failed to release reservation", "asset_id", it.AssetID, "error", err)
			}
		}
		s.cache.Invalidate(ctx, it.AssetID)
	}

	_ = s.emailSvc.SendLoanStatusUpdate(ctx, app, previous)
	if userID, ok := app.Applicant.UserID(); ok {
		note := &domain.Notification{
			UserID:  userID,
			Title:   fmt.Sprintf("Application %s", app.Status),
			Message: fmt.Sprintf("Loan application %s is now %s", app.ApplicationNumber, app.Status),
			Attributes: map[string]string{
				"type":           "APPLICATION_DECISION",
				"application_id": fmt.Sprintf("%d", app.ID),
			},
		}
		_ = s.noteRepo.Create(ctx, note)
	}

	logger.InfoContext(ctx, "Application decided",
		"application", app.ApplicationNumber,
		"status", app.Status)
	return nil
}
