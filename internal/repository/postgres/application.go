package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/repository"
)

const pqUniqueViolation = "23505"

type applicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) repository.ApplicationRepository {
	return &applicationRepository{db: db}
}

const applicationColumns = `id, application_number, user_id, is_guest, applicant_name, applicant_email, applicant_phone, applicant_staff_id, applicant_grade, applicant_division, start_date, end_date, location, return_location, status, priority, total_value_cents, approval_token, token_expires_at, approver_id, decision_comment, rejection_reason, special_instructions, created_on, updated_on`

// CreateWithItems reserves each referenced asset, inserts the application and
// its items, all in one transaction. A lost reservation race surfaces as
// domain.ErrAssetUnavailable, a duplicate application number as
// domain.ErrNumberConflict; in both cases the transaction is rolled back.
func (r *applicationRepository) CreateWithItems(ctx context.Context, app *domain.LoanApplication, items []domain.LoanItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	seen := make(map[int32]bool, len(items))
	for _, it := range items {
		if seen[it.AssetID] {
			continue
		}
		seen[it.AssetID] = true
		res, err := tx.ExecContext(ctx,
			`UPDATE assets SET status = $1, updated_on = $2 WHERE id = $3 AND status = $4`,
			domain.AssetStatusReserved, now, it.AssetID, domain.AssetStatusAvailable)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("asset %d: %w", it.AssetID, domain.ErrAssetUnavailable)
		}
	}

	userID, guest := applicantColumns(app.Applicant)
	query := `INSERT INTO loan_applications (application_number, user_id, is_guest, applicant_name, applicant_email, applicant_phone, applicant_staff_id, applicant_grade, applicant_division, start_date, end_date, location, return_location, status, priority, total_value_cents, special_instructions, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19) RETURNING id`
	err = tx.QueryRowContext(ctx, query,
		app.ApplicationNumber, userID, app.Applicant.IsGuest(),
		app.ApplicantName, app.ApplicantEmail, guest.Phone, guest.StaffID, app.ApplicantGrade, guest.Division,
		app.StartDate, app.EndDate, app.Location, app.ReturnLocation,
		app.Status, app.Priority, app.TotalValueCents, app.SpecialInstructions,
		now, now).Scan(&app.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("%s: %w", app.ApplicationNumber, domain.ErrNumberConflict)
		}
		return err
	}

	for i := range items {
		items[i].ApplicationID = app.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO loan_items (application_id, asset_id, quantity, unit_value_cents, line_total_cents) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			items[i].ApplicationID, items[i].AssetID, items[i].Quantity, items[i].UnitValueCents, items[i].LineTotalCents).Scan(&items[i].ID)
		if err != nil {
			return err
		}
	}

	app.CreatedOn = now
	app.UpdatedOn = now
	return tx.Commit()
}

func (r *applicationRepository) GetByID(ctx context.Context, id int32) (*domain.LoanApplication, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM loan_applications WHERE id = $1`, id)
	return scanApplication(row)
}

func (r *applicationRepository) GetByNumber(ctx context.Context, number string) (*domain.LoanApplication, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM loan_applications WHERE application_number = $1`, number)
	return scanApplication(row)
}

func (r *applicationRepository) GetByApprovalToken(ctx context.Context, token string) (*domain.LoanApplication, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM loan_applications WHERE approval_token = $1`, token)
	return scanApplication(row)
}

func (r *applicationRepository) Update(ctx context.Context, app *domain.LoanApplication) error {
	userID, _ := applicantColumns(app.Applicant)
	var token sql.NullString
	if app.ApprovalToken != "" {
		token = sql.NullString{String: app.ApprovalToken, Valid: true}
	}
	query := `UPDATE loan_applications SET user_id=$1, end_date=$2, status=$3, approval_token=$4, token_expires_at=$5, approver_id=$6, decision_comment=$7, rejection_reason=$8, special_instructions=$9, updated_on=$10 WHERE id=$11`
	_, err := r.db.ExecContext(ctx, query, userID, app.EndDate, app.Status, token, app.TokenExpiresAt, app.ApproverID, app.DecisionComment, app.RejectionReason, app.SpecialInstructions, time.Now(), app.ID)
	return err
}

func (r *applicationRepository) CountForMonth(ctx context.Context, year int, month time.Month) (int32, error) {
	var count int32
	query := `SELECT count(*) FROM loan_applications WHERE date_part('year', created_on) = $1 AND date_part('month', created_on) = $2`
	err := r.db.QueryRowContext(ctx, query, year, int(month)).Scan(&count)
	return count, err
}

func (r *applicationRepository) FindActiveBookings(ctx context.Context, assetID int32, excludeApplicationID *int32) ([]domain.Booking, error) {
	query := `SELECT a.id, a.application_number, a.applicant_name, a.start_date, a.end_date
	          FROM loan_applications a
	          JOIN loan_items i ON i.application_id = a.id
	          WHERE i.asset_id = $1 AND a.status = ANY($2)`
	statuses := make([]string, 0, len(domain.ActiveStatuses))
	for _, s := range domain.ActiveStatuses {
		statuses = append(statuses, string(s))
	}
	args := []interface{}{assetID, pq.Array(statuses)}
	if excludeApplicationID != nil {
		query += " AND a.id <> $3"
		args = append(args, *excludeApplicationID)
	}
	query += " ORDER BY a.start_date"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ApplicationID, &b.ApplicationNumber, &b.ApplicantName, &b.StartDate, &b.EndDate); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *applicationRepository) GetItems(ctx context.Context, applicationID int32) ([]domain.LoanItem, error) {
	query := `SELECT id, application_id, asset_id, quantity, unit_value_cents, line_total_cents, condition_before, condition_after, accessories_issued, accessories_returned FROM loan_items WHERE application_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LoanItem
	for rows.Next() {
		var it domain.LoanItem
		if err := rows.Scan(&it.ID, &it.ApplicationID, &it.AssetID, &it.Quantity, &it.UnitValueCents, &it.LineTotalCents, &it.ConditionBefore, &it.ConditionAfter, &it.AccessoriesIssued, &it.AccessoriesReturned); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *applicationRepository) UpdateItemCondition(ctx context.Context, item *domain.LoanItem) error {
	query := `UPDATE loan_items SET condition_before=$1, condition_after=$2, accessories_issued=$3, accessories_returned=$4 WHERE id=$5`
	_, err := r.db.ExecContext(ctx, query, item.ConditionBefore, item.ConditionAfter, item.AccessoriesIssued, item.AccessoriesReturned, item.ID)
	return err
}

func (r *applicationRepository) ClaimForUser(ctx context.Context, applicationID, userID int32) (bool, error) {
	query := `UPDATE loan_applications SET user_id = $1, updated_on = $2 WHERE id = $3 AND user_id IS NULL`
	res, err := r.db.ExecContext(ctx, query, userID, time.Now(), applicationID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *applicationRepository) ListUnderReviewExpiringBefore(ctx context.Context, deadline time.Time) ([]domain.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE status = $1 AND token_expires_at IS NOT NULL AND token_expires_at < $2`
	return r.list(ctx, query, domain.StatusUnderReview, deadline)
}

func (r *applicationRepository) ListInUsePastEndDate(ctx context.Context, asOf time.Time) ([]domain.LoanApplication, error) {
	query := `SELECT ` + applicationColumns + ` FROM loan_applications WHERE status = $1 AND end_date < $2`
	return r.list(ctx, query, domain.StatusInUse, asOf)
}

func (r *applicationRepository) list(ctx context.Context, query string, args ...interface{}) ([]domain.LoanApplication, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []domain.LoanApplication
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

func applicantColumns(a domain.Applicant) (sql.NullInt32, domain.GuestContact) {
	var userID sql.NullInt32
	if id, ok := a.UserID(); ok {
		userID = sql.NullInt32{Int32: id, Valid: true}
	}
	guest, _ := a.Guest()
	return userID, guest
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*domain.LoanApplication, error) {
	app := &domain.LoanApplication{}
	var (
		userID     sql.NullInt32
		isGuest    bool
		phone      string
		staffID    string
		division   string
		token      sql.NullString
		expiry     sql.NullTime
		approverID sql.NullInt32
	)
	err := row.Scan(&app.ID, &app.ApplicationNumber, &userID, &isGuest,
		&app.ApplicantName, &app.ApplicantEmail, &phone, &staffID, &app.ApplicantGrade, &division,
		&app.StartDate, &app.EndDate, &app.Location, &app.ReturnLocation,
		&app.Status, &app.Priority, &app.TotalValueCents,
		&token, &expiry, &approverID,
		&app.DecisionComment, &app.RejectionReason, &app.SpecialInstructions,
		&app.CreatedOn, &app.UpdatedOn)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if isGuest {
		app.Applicant = domain.GuestApplicant(domain.GuestContact{
			Name:     app.ApplicantName,
			Email:    app.ApplicantEmail,
			Phone:    phone,
			StaffID:  staffID,
			Grade:    app.ApplicantGrade,
			Division: division,
		})
		if userID.Valid {
			app.Applicant = app.Applicant.LinkAccount(userID.Int32)
		}
	} else if userID.Valid {
		app.Applicant = domain.AuthenticatedApplicant(userID.Int32)
	}
	if token.Valid {
		app.ApprovalToken = token.String
	}
	if expiry.Valid {
		t := expiry.Time
		app.TokenExpiresAt = &t
	}
	if approverID.Valid {
		id := approverID.Int32
		app.ApproverID = &id
	}
	return app, nil
}
