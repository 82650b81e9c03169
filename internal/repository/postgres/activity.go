package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/repository"
)

type activityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) repository.ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, e *domain.PortalActivity) error {
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return err
	}
	query := `INSERT INTO portal_activities (user_id, action, detail, attributes, created_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	now := time.Now()
	if err := r.db.QueryRowContext(ctx, query, e.UserID, e.Action, e.Detail, attrs, now).Scan(&e.ID); err != nil {
		return err
	}
	e.CreatedOn = now
	return nil
}
