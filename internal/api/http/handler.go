package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/repository"
	"loandesk-backend/internal/service"
)

// Handler carries the service layer into the HTTP surface. Route wiring
// lives in NewRouter.
type Handler struct {
	apps          service.ApplicationService
	approvals     service.ApprovalService
	availability  service.AvailabilityService
	claims        service.ClaimService
	notifications service.NotificationService
	auth          service.AuthService
	users         repository.UserRepository
}

func NewHandler(
	apps service.ApplicationService,
	approvals service.ApprovalService,
	availability service.AvailabilityService,
	claims service.ClaimService,
	notifications service.NotificationService,
	auth service.AuthService,
	users repository.UserRepository,
) *Handler {
	return &Handler{
		apps:          apps,
		approvals:     approvals,
		availability:  availability,
		claims:        claims,
		notifications: notifications,
		auth:          auth,
		users:         users,
	}
}

const dateLayout = "2006-01-02"

func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, domain.ErrInvalidRequest)
	}
	return int32(id), nil
}

func parseDate(raw, name string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q, expected YYYY-MM-DD: %w", name, raw, domain.ErrInvalidRequest)
	}
	return t, nil
}

// currentUser loads the account behind the session claims. Routes behind
// the Authenticate middleware always carry claims.
func (h *Handler) currentUser(r *http.Request) (*domain.User, error) {
	claims := sessionFrom(r.Context())
	if claims == nil {
		return nil, domain.ErrNotAuthorized
	}
	return h.users.GetByID(r.Context(), claims.UserID)
}
