package service

import (
	"context"
	"fmt"
	"time"

	"loandesk-backend/internal/clock"
	"loandesk-backend/internal/domain"
	"loandesk-backend/internal/logger"
	"loandesk-backend/internal/repository"
)

type availabilityService struct {
	assetRepo repository.AssetRepository
	appRepo   repository.ApplicationRepository
	cache     CalendarCache
	clk       clock.Clock
}

func NewAvailabilityService(
	assetRepo repository.AssetRepository,
	appRepo repository.ApplicationRepository,
	cache CalendarCache,
	clk clock.Clock,
) AvailabilityService {
	return &availabilityService{
		assetRepo: assetRepo,
		appRepo:   appRepo,
		cache:     cache,
		clk:       clk,
	}
}

func (s *availabilityService) CheckAvailability(ctx context.Context, assetIDs []int32, start, end time.Time, excludeApplicationID *int32) (map[int32]bool, error) {
	assets, err := s.assetRepo.GetByIDs(ctx, assetIDs)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	result := make(map[int32]bool, len(assetIDs))
	for _, id := range assetIDs {
		asset, ok := assets[id]
		if !ok {
			// Unknown ids are unavailable, never an error.
			result[id] = false
			continue
		}
		if asset.Status.OutOfService() {
			result[id] = false
			continue
		}
		free, err := s.rangeFree(ctx, id, start, end, excludeApplicationID)
		if err != nil {
			return nil, err
		}
		result[id] = free
	}
	return result, nil
}

func (s *availabilityService) rangeFree(ctx context.Context, assetID int32, start, end time.Time, excludeApplicationID *int32) (bool, error) {
	bookings, err := s.appRepo.FindActiveBookings(ctx, assetID, excludeApplicationID)
	if err != nil {
		return false, fmt.Errorf("load bookings for asset %d: %w", assetID, err)
	}
	for _, b := range bookings {
		if b.Overlaps(start, end) {
			return false, nil
		}
	}
	return true, nil
}

func (s *availabilityService) GetAvailabilityCalendar(ctx context.Context, assetID int32, start, end time.Time) (*domain.AvailabilityCalendar, error) {
	if cal, ok := s.cache.Get(ctx, assetID, start, end); ok {
		return cal, nil
	}

	asset, err := s.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.appRepo.FindActiveBookings(ctx, assetID, nil)
	if err != nil {
		return nil, fmt.Errorf("load bookings for asset %d: %w", assetID, err)
	}

	cal := &domain.AvailabilityCalendar{
		AssetID:   assetID,
		Available: !asset.Status.OutOfService(),
	}
	for _, b := range bookings {
		if !b.Overlaps(start, end) {
			continue
		}
		cal.Available = false
		cal.BookedRanges = append(cal.BookedRanges, domain.BookedRange{
			StartDate:         b.StartDate,
			EndDate:           b.EndDate,
			ApplicationNumber: b.ApplicationNumber,
			ApplicantName:     b.ApplicantName,
		})
	}

	s.cache.Set(ctx, cal, start, end)
	return cal, nil
}

func (s *availabilityService) ReserveAsset(ctx context.Context, assetID, applicationID int32) (bool, error) {
	ok, err := s.assetRepo.TransitionStatus(ctx, assetID, domain.AssetStatusAvailable, domain.AssetStatusReserved)
	if err != nil {
		return false, err
	}
	if ok {
		logger.InfoContext(ctx, "Asset reserved", "asset_id", assetID, "application_id", applicationID)
		s.cache.Invalidate(ctx, assetID)
	}
	return ok, nil
}

func (s *availabilityService) ReleaseReservation(ctx context.Context, assetID, applicationID int32) (bool, error) {
	ok, err := s.assetRepo.TransitionStatus(ctx, assetID, domain.AssetStatusReserved, domain.AssetStatusAvailable)
	if err != nil {
		return false, err
	}
	if ok {
		logger.InfoContext(ctx, "Reservation released", "asset_id", assetID, "application_id", applicationID)
		s.cache.Invalidate(ctx, assetID)
	}
	return ok, nil
}

func (s *availabilityService) GetAlternativeAssets(ctx context.Context, category string, start, end time.Time, limit int) ([]domain.Asset, error) {
	candidates, err := s.assetRepo.ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list category %q: %w", category, err)
	}

	var alternatives []domain.Asset
	for _, asset := range candidates {
		if len(alternatives) >= limit {
			break
		}
		if asset.Status.OutOfService() {
			continue
		}
		free, err := s.rangeFree(ctx, asset.ID, start, end, nil)
		if err != nil {
			return nil, err
		}
		if free {
			alternatives = append(alternatives, asset)
		}
	}
	return alternatives, nil
}

func (s *availabilityService) CalculateUtilizationRate(ctx context.Context, assetID int32, windowDays int) (float64, error) {
	if windowDays <= 0 {
		return 0, fmt.Errorf("window days must be positive: %w", domain.ErrInvalidRequest)
	}

	bookings, err := s.appRepo.FindActiveBookings(ctx, assetID, nil)
	if err != nil {
		return 0, fmt.Errorf("load bookings for asset %d: %w", assetID, err)
	}

	windowEnd := s.clk.Now().Truncate(24 * time.Hour)
	covered := 0
	for i := 0; i < windowDays; i++ {
		day := windowEnd.AddDate(0, 0, -i)
		for _, b := range bookings {
			if b.Overlaps(day, day) {
				covered++
				break
			}
		}
	}

	rate := float64(covered) / float64(windowDays) * 100
	if rate < 0 {
		rate = 0
	}
	if rate > 100 {
		rate = 100
	}
	return rate, nil
}

func (s *availabilityService) InvalidateCalendar(ctx context.Context, assetID int32) {
	s.cache.Invalidate(ctx, assetID)
}
