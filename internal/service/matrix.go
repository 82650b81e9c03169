package service

import (
	"context"
	"fmt"

	"loandesk-backend/internal/config"
	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/repository"
)

// approvalMatrix resolves the required approver grade from an ordered table
// of (applicant grade, value tier) rules. Thresholds are data, not code.
type approvalMatrix struct {
	rules         []config.RoutingRule
	fallbackGrade int32
	userRepo      repository.UserRepository
}

func NewApprovalMatrix(cfg config.ApprovalConfig, userRepo repository.UserRepository) ApprovalMatrix {
	return &approvalMatrix{
		rules:         cfg.Routing,
		fallbackGrade: cfg.FallbackGrade,
		userRepo:      userRepo,
	}
}

// RequiredGrade resolves the approver grade. Tier bounds are inclusive: a
// value exactly on a threshold falls into the lower tier. Grades without a
// rule route to the fallback grade.
func (m *approvalMatrix) RequiredGrade(applicantGrade, valueCents int32) int32 {
	for _, rule := range m.rules {
		if rule.ApplicantGrade != applicantGrade {
			continue
		}
		switch {
		case valueCents <= rule.Tier1Max:
			return rule.Tier1Grade
		case valueCents <= rule.Tier2Max:
			return rule.Tier2Grade
		default:
			return rule.Tier3Grade
		}
	}
	return m.fallbackGrade
}

// DetermineApprover walks the fallback chain: exact required grade, then the
// fallback grade, then any superuser. When several match, any one will do.
func (m *approvalMatrix) DetermineApprover(ctx context.Context, applicantGrade, valueCents int32) (*domain.User, error) {
	required := m.RequiredGrade(applicantGrade, valueCents)

	users, err := m.userRepo.FindByRoleAndGrade(ctx, domain.ApproverRoles, required)
	if err != nil {
		return nil, fmt.Errorf("approver lookup: %w", err)
	}
	if len(users) > 0 {
		return &users[0], nil
	}

	if required != m.fallbackGrade {
		users, err = m.userRepo.FindByRoleAndGrade(ctx, domain.ApproverRoles, m.fallbackGrade)
		if err != nil {
			return nil, fmt.Errorf("approver lookup: %w", err)
		}
		if len(users) > 0 {
			return &users[0], nil
		}
	}

	users, err = m.userRepo.FindByRole(ctx, []domain.UserRole{domain.UserRoleSuperuser})
	if err != nil {
		return nil, fmt.Errorf("approver lookup: %w", err)
	}
	if len(users) > 0 {
		return &users[0], nil
	}

	return nil, domain.ErrNoApproverAvailable
}

func (m *approvalMatrix) CanUserApprove(user *domain.User, applicantGrade, valueCents int32) bool {
	if user == nil || !user.HasApproverRole() {
		return false
	}
	return user.Grade == m.RequiredGrade(applicantGrade, valueCents)
}
