package postgres

import (
	"database/sql"

	"loandesk-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.AssetRepository
	repository.ApplicationRepository
	repository.UserRepository
	repository.NotificationRepository
	repository.SubmissionRepository
	repository.ActivityRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		AssetRepository:        NewAssetRepository(db),
		ApplicationRepository:  NewApplicationRepository(db),
		UserRepository:         NewUserRepository(db),
		NotificationRepository: NewNotificationRepository(db),
		SubmissionRepository:   NewSubmissionRepository(db),
		ActivityRepository:     NewActivityRepository(db),
	}
}
