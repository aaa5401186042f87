package model

import (
	"time"

	"github.com/google/uuid"
)

// Provider is a doctor attached to a facility.
type Provider struct {
	Base
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	FacilityID     uuid.UUID `db:"facility_id" json:"facility_id"`
	Name           string    `db:"name" json:"name"`
	Specialization string    `db:"specialization" json:"specialization"`
	// Available is the manual on/off-duty toggle. An off-duty provider
	// exposes no bookable slots.
	Available bool `db:"available" json:"available"`
}

// AvailabilityWindow is one weekly recurring bookable window.
// StartTime and EndTime are wall-clock "HH:MM" values.
type AvailabilityWindow struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	ProviderID uuid.UUID    `db:"provider_id" json:"provider_id"`
	Weekday    time.Weekday `db:"weekday" json:"weekday"`
	StartTime  string       `db:"start_time" json:"start_time"`
	EndTime    string       `db:"end_time" json:"end_time"`
}

type WindowInput struct {
	Weekday   int    `json:"weekday" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// UpdateAvailabilityRequest replaces the provider's full weekly schedule.
// An empty list clears it.
type UpdateAvailabilityRequest struct {
	Windows []WindowInput `json:"windows" validate:"dive"`
}

type SetDutyRequest struct {
	Available bool `json:"available"`
}

type ProviderFilters struct {
	FacilityID     uuid.UUID
	Specialization string
	AvailableOnly  bool
}
