package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/repository"
)

type assetRepository struct {
	db *sql.DB
}

func NewAssetRepository(db *sql.DB) repository.AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) GetByID(ctx context.Context, id int32) (*domain.Asset, error) {
	a := &domain.Asset{}
	query := `SELECT id, name, category, value_cents, status, created_on, updated_on FROM assets WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.Category, &a.ValueCents, &a.Status, &a.CreatedOn, &a.UpdatedOn)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assetRepository) GetByIDs(ctx context.Context, ids []int32) (map[int32]*domain.Asset, error) {
	query := `SELECT id, name, category, value_cents, status, created_on, updated_on FROM assets WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := make(map[int32]*domain.Asset, len(ids))
	for rows.Next() {
		a := &domain.Asset{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Category, &a.ValueCents, &a.Status, &a.CreatedOn, &a.UpdatedOn); err != nil {
			return nil, err
		}
		assets[a.ID] = a
	}
	return assets, rows.Err()
}

func (r *assetRepository) ListByCategory(ctx context.Context, category string) ([]domain.Asset, error) {
	query := `SELECT id, name, category, value_cents, status, created_on, updated_on FROM assets WHERE category = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.ID, &a.Name, &a.Category, &a.ValueCents, &a.Status, &a.CreatedOn, &a.UpdatedOn); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// TransitionStatus only succeeds when the asset still holds the expected
// status, so two concurrent reservations cannot both win.
func (r *assetRepository) TransitionStatus(ctx context.Context, id int32, from, to domain.AssetStatus) (bool, error) {
	query := `UPDATE assets SET status = $1, updated_on = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *assetRepository) ListReservedWithoutActiveApplication(ctx context.Context) ([]int32, error) {
	query := `
		SELECT s.id FROM assets s
		WHERE s.status = 'RESERVED'
		  AND NOT EXISTS (
			SELECT 1 FROM loan_items i
			JOIN loan_applications a ON a.id = i.application_id
			WHERE i.asset_id = s.id
			  AND a.status = ANY($1)
		  )`
	pipeline := []string{
		string(domain.StatusSubmitted),
		string(domain.StatusUnderReview),
		string(domain.StatusApproved),
		string(domain.StatusReadyIssuance),
		string(domain.StatusIssued),
		string(domain.StatusInUse),
	}
	rows, err := r.db.QueryContext(ctx, query, pq.Array(pipeline))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
