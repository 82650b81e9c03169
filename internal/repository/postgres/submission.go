package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/repository"
)

type submissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) repository.SubmissionRepository {
	return &submissionRepository{db: db}
}

// ListUnclaimedByEmail spans both submission kinds: loan applications and
// helpdesk tickets created by the same guest email.
func (r *submissionRepository) ListUnclaimedByEmail(ctx context.Context, email string) ([]domain.GuestSubmission, error) {
	query := `
		SELECT 'loan' AS kind, id, application_number AS reference, location AS subject, applicant_name, applicant_email, created_on
		FROM loan_applications
		WHERE is_guest AND user_id IS NULL AND applicant_email = $1
		UNION ALL
		SELECT 'ticket' AS kind, id, ticket_number AS reference, subject, guest_name, guest_email, created_on
		FROM tickets
		WHERE user_id IS NULL AND guest_email = $1
		ORDER BY created_on DESC`
	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.GuestSubmission
	for rows.Next() {
		var s domain.GuestSubmission
		if err := rows.Scan(&s.Kind, &s.ID, &s.Reference, &s.Subject, &s.GuestName, &s.GuestEmail, &s.SubmittedOn); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *submissionRepository) Get(ctx context.Context, kind domain.SubmissionKind, id int32) (*domain.GuestSubmission, error) {
	var query string
	switch kind {
	case domain.SubmissionKindLoan:
		query = `SELECT id, application_number, location, applicant_name, applicant_email, user_id, created_on FROM loan_applications WHERE id = $1 AND is_guest`
	case domain.SubmissionKindTicket:
		query = `SELECT id, ticket_number, subject, guest_name, guest_email, user_id, created_on FROM tickets WHERE id = $1`
	default:
		return nil, fmt.Errorf("unknown submission kind %q", kind)
	}
	s := &domain.GuestSubmission{Kind: kind}
	var userID sql.NullInt32
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.Reference, &s.Subject, &s.GuestName, &s.GuestEmail, &userID, &s.SubmittedOn)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		uid := userID.Int32
		s.UserID = &uid
	}
	return s, nil
}

func (r *submissionRepository) Claim(ctx context.Context, kind domain.SubmissionKind, id, userID int32) (bool, error) {
	var query string
	switch kind {
	case domain.SubmissionKindLoan:
		query = `UPDATE loan_applications SET user_id = $1, updated_on = $2 WHERE id = $3 AND user_id IS NULL`
	case domain.SubmissionKindTicket:
		query = `UPDATE tickets SET user_id = $1, updated_on = $2 WHERE id = $3 AND user_id IS NULL`
	default:
		return false, fmt.Errorf("unknown submission kind %q", kind)
	}
	res, err := r.db.ExecContext(ctx, query, userID, time.Now(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
