package service

import (
	"context"
	"fmt"
	"strings"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/logger"
	"loandesk-backend/internal/repository"
)

// claimService generalizes guest-to-account claiming across submission
// kinds (loan applications and helpdesk tickets).
type claimService struct {
	subRepo      repository.SubmissionRepository
	activityRepo repository.ActivityRepository
	emailSvc     EmailService
}

func NewClaimService(
	subRepo repository.SubmissionRepository,
	activityRepo repository.ActivityRepository,
	emailSvc EmailService,
) ClaimService {
	return &claimService{
		subRepo:      subRepo,
		activityRepo: activityRepo,
		emailSvc:     emailSvc,
	}
}

func (s *claimService) FindClaimableSubmissions(ctx context.Context, user *domain.User) ([]domain.GuestSubmission, error) {
	return s.subRepo.ListUnclaimedByEmail(ctx, user.Email)
}

func (s *claimService) ClaimSubmission(ctx context.Context, user *domain.User, kind domain.SubmissionKind, id int32) error {
	sub, err := s.subRepo.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if sub.UserID != nil {
		return domain.ErrAlreadyLinked
	}
	if !strings.EqualFold(user.Email, sub.GuestEmail) {
		return domain.ErrEmailMismatch
	}

	ok, err := s.subRepo.Claim(ctx, kind, id, user.ID)
	if err != nil {
		return fmt.Errorf("claim submission: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyLinked
	}

	event := &domain.PortalActivity{
		UserID: user.ID,
		Action: "submission_claimed",
		Detail: fmt.Sprintf("Claimed %s submission %s", kind, sub.Reference),
		Attributes: map[string]string{
			"kind":      string(kind),
			"reference": sub.Reference,
		},
	}
	if err := s.activityRepo.Create(ctx, event); err != nil {
		logger.ErrorContext(ctx, "Failed to record claim activity", "reference", sub.Reference, "error", err)
	}
	_ = s.emailSvc.SendSubmissionClaimed(ctx, user.Email, user.Name, sub.Reference)

	logger.InfoContext(ctx, "Submission claimed", "kind", kind, "reference", sub.Reference, "user_id", user.ID)
	return nil
}
