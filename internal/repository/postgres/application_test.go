package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/repository/postgres"
)

var applicationColumns = []string{
	"id", "application_number", "user_id", "is_guest",
	"applicant_name", "applicant_email", "applicant_phone", "applicant_staff_id", "applicant_grade", "applicant_division",
	"start_date", "end_date", "location", "return_location", "status", "priority", "total_value_cents",
	"approval_token", "token_expires_at", "approver_id",
	"decision_comment", "rejection_reason", "special_instructions", "created_on", "updated_on",
}

func newGuestApplication() (*domain.LoanApplication, []domain.LoanItem) {
	app := &domain.LoanApplication{
		ApplicationNumber: "LA2026030005",
		Applicant:         domain.GuestApplicant(domain.GuestContact{Name: "Ada", Email: "ada@example.com", Grade: 41}),
		ApplicantName:     "Ada",
		ApplicantEmail:    "ada@example.com",
		ApplicantGrade:    41,
		StartDate:         time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		EndDate:           time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC),
		Location:          "Building A",
		ReturnLocation:    "Building A",
		Status:            domain.StatusSubmitted,
		Priority:          domain.PriorityNormal,
		TotalValueCents:   7000,
	}
	items := []domain.LoanItem{
		{AssetID: 1, Quantity: 2, UnitValueCents: 1000, LineTotalCents: 2000},
		{AssetID: 2, Quantity: 1, UnitValueCents: 5000, LineTotalCents: 5000},
	}
	return app, items
}

func TestApplicationRepository_CreateWithItems(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves assets, inserts application and items, commits", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := postgres.NewApplicationRepository(db)

		app, items := newGuestApplication()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE assets SET status").
			WithArgs(domain.AssetStatusReserved, sqlmock.AnyArg(), int32(1), domain.AssetStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE assets SET status").
			WithArgs(domain.AssetStatusReserved, sqlmock.AnyArg(), int32(2), domain.AssetStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO loan_applications").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
		mock.ExpectQuery("INSERT INTO loan_items").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery("INSERT INTO loan_items").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectCommit()

		err = repo.CreateWithItems(ctx, app, items)
		require.NoError(t, err)
		assert.Equal(t, int32(10), app.ID)
		assert.Equal(t, int32(10), items[0].ApplicationID)
		assert.Equal(t, int32(1), items[0].ID)
		assert.Equal(t, int32(2), items[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost reservation rolls everything back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := postgres.NewApplicationRepository(db)

		app, items := newGuestApplication()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE assets SET status").
			WithArgs(domain.AssetStatusReserved, sqlmock.AnyArg(), int32(1), domain.AssetStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// Second asset was grabbed by a concurrent application.
		mock.ExpectExec("UPDATE assets SET status").
			WithArgs(domain.AssetStatusReserved, sqlmock.AnyArg(), int32(2), domain.AssetStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = repo.CreateWithItems(ctx, app, items)
		assert.ErrorIs(t, err, domain.ErrAssetUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate number maps the unique violation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := postgres.NewApplicationRepository(db)

		app, items := newGuestApplication()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE assets SET status").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE assets SET status").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO loan_applications").
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		err = repo.CreateWithItems(ctx, app, items)
		assert.ErrorIs(t, err, domain.ErrNumberConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reserves each distinct asset once", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := postgres.NewApplicationRepository(db)

		app, _ := newGuestApplication()
		items := []domain.LoanItem{
			{AssetID: 1, Quantity: 1, UnitValueCents: 1000, LineTotalCents: 1000},
			{AssetID: 1, Quantity: 1, UnitValueCents: 1000, LineTotalCents: 1000},
		}

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE assets SET status").
			WithArgs(domain.AssetStatusReserved, sqlmock.AnyArg(), int32(1), domain.AssetStatusAvailable).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO loan_applications").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		mock.ExpectQuery("INSERT INTO loan_items").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery("INSERT INTO loan_items").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectCommit()

		err = repo.CreateWithItems(ctx, app, items)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestApplicationRepository_GetByID_RebuildsGuestApplicant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewApplicationRepository(db)
	ctx := context.Background()

	now := time.Now()
	expiry := now.Add(7 * 24 * time.Hour)

	t.Run("unclaimed guest", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM loan_applications WHERE id").
			WithArgs(int32(10)).
			WillReturnRows(sqlmock.NewRows(applicationColumns).AddRow(
				10, "LA2026030005", nil, true,
				"Ada", "ada@example.com", "555-0101", "S-41", 41, "Ops",
				now, now, "Building A", "Building A", "UNDER_REVIEW", "NORMAL", 7000,
				"abcd", expiry, 9,
				"", "", "", now, now,
			))

		app, err := repo.GetByID(ctx, 10)
		require.NoError(t, err)
		assert.True(t, app.Applicant.IsGuest())
		_, linked := app.Applicant.UserID()
		assert.False(t, linked)
		guest, ok := app.Applicant.Guest()
		require.True(t, ok)
		assert.Equal(t, "555-0101", guest.Phone)
		assert.Equal(t, "Ops", guest.Division)
		assert.Equal(t, "abcd", app.ApprovalToken)
		require.NotNil(t, app.TokenExpiresAt)
		assert.Equal(t, int32(9), *app.ApproverID)
	})

	t.Run("claimed guest keeps contact snapshot and gains account", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM loan_applications WHERE id").
			WithArgs(int32(10)).
			WillReturnRows(sqlmock.NewRows(applicationColumns).AddRow(
				10, "LA2026030005", 7, true,
				"Ada", "ada@example.com", "", "", 41, "",
				now, now, "A", "A", "APPROVED", "NORMAL", 7000,
				nil, nil, nil,
				"", "", "", now, now,
			))

		app, err := repo.GetByID(ctx, 10)
		require.NoError(t, err)
		assert.True(t, app.Applicant.IsGuest())
		userID, linked := app.Applicant.UserID()
		assert.True(t, linked)
		assert.Equal(t, int32(7), userID)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM loan_applications WHERE id").
			WithArgs(int32(99)).
			WillReturnRows(sqlmock.NewRows(applicationColumns))

		_, err := repo.GetByID(ctx, 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestApplicationRepository_ClaimForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewApplicationRepository(db)
	ctx := context.Background()

	t.Run("claims an unlinked application", func(t *testing.T) {
		mock.ExpectExec("UPDATE loan_applications SET user_id").
			WithArgs(int32(7), sqlmock.AnyArg(), int32(10)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.ClaimForUser(ctx, 10, 7)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("lost race reports false", func(t *testing.T) {
		mock.ExpectExec("UPDATE loan_applications SET user_id").
			WithArgs(int32(7), sqlmock.AnyArg(), int32(10)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.ClaimForUser(ctx, 10, 7)
		assert.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestApplicationRepository_FindActiveBookings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewApplicationRepository(db)
	ctx := context.Background()

	cols := []string{"id", "application_number", "applicant_name", "start_date", "end_date"}
	start := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)

	t.Run("without exclusion", func(t *testing.T) {
		mock.ExpectQuery("SELECT a.id, a.application_number").
			WithArgs(int32(3), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(10, "LA2026030005", "Ada", start, end))

		bookings, err := repo.FindActiveBookings(ctx, 3, nil)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, "LA2026030005", bookings[0].ApplicationNumber)
	})

	t.Run("excluding one application", func(t *testing.T) {
		exclude := int32(10)
		mock.ExpectQuery("SELECT a.id, a.application_number(.+)a.id <>").
			WithArgs(int32(3), sqlmock.AnyArg(), exclude).
			WillReturnRows(sqlmock.NewRows(cols))

		bookings, err := repo.FindActiveBookings(ctx, 3, &exclude)
		require.NoError(t, err)
		assert.Empty(t, bookings)
	})
}

func TestApplicationRepository_CountForMonth(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewApplicationRepository(db)

	mock.ExpectQuery("SELECT count(.+) FROM loan_applications").
		WithArgs(2026, 3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	count, err := repo.CountForMonth(context.Background(), 2026, time.March)
	assert.NoError(t, err)
	assert.Equal(t, int32(17), count)
}
