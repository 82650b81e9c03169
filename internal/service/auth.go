package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/repository"
	"loandesk-backend/internal/security"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// authService is just enough session mechanics to give the reviewer portal
// an authenticated identity.
type authService struct {
	userRepo repository.UserRepository
	tokens   security.TokenManager
}

func NewAuthService(userRepo repository.UserRepository, tokens security.TokenManager) AuthService {
	return &authService{userRepo: userRepo, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return "", nil, err
	}
	return access, user, nil
}
