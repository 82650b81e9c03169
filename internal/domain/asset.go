package domain

import "time"

// AssetStatus tracks where an asset sits in the lending pipeline.
type AssetStatus string

const (
	AssetStatusAvailable   AssetStatus = "AVAILABLE"
	AssetStatusReserved    AssetStatus = "RESERVED"
	AssetStatusLoaned      AssetStatus = "LOANED"
	AssetStatusMaintenance AssetStatus = "MAINTENANCE"
	AssetStatusDamaged     AssetStatus = "DAMAGED"
	AssetStatusRetired     AssetStatus = "RETIRED"
)

// OutOfService reports whether the asset is withdrawn from lending
// regardless of dates. Date math never makes these statuses available.
func (s AssetStatus) OutOfService() bool {
	switch s {
	case AssetStatusMaintenance, AssetStatusDamaged, AssetStatusRetired:
		return true
	}
	return false
}

type Asset struct {
	ID         int32       `json:"id"`
	Name       string      `json:"name"`
	Category   string      `json:"category"`
	ValueCents int32       `json:"value_cents"`
	Status     AssetStatus `json:"status"`
	CreatedOn  time.Time   `json:"created_on"`
	UpdatedOn  time.Time   `json:"updated_on"`
}

// Booking is one application's hold on an asset, as seen by the
// availability checks.
type Booking struct {
	ApplicationID     int32     `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	ApplicantName     string    `json:"applicant_name"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
}

// Overlaps reports whether the booking intersects [start, end]. Both
// ranges are inclusive, so a loan ending on a given day blocks a loan
// starting that same day.
func (b Booking) Overlaps(start, end time.Time) bool {
	return !b.StartDate.After(end) && !b.EndDate.Before(start)
}

type BookedRange struct {
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	ApplicationNumber string    `json:"application_number"`
	ApplicantName     string    `json:"applicant_name"`
}

// AvailabilityCalendar is the per-asset view served to browsing clients.
type AvailabilityCalendar struct {
	AssetID      int32         `json:"asset_id"`
	Available    bool          `json:"available"`
	BookedRanges []BookedRange `json:"booked_ranges,omitempty"`
}
