package model

import (
	"github.com/google/uuid"
)

// FacilityStatus is derived from bed inventory, never stored: a facility
// is full iff it tracks bed categories and none has availability.
type FacilityStatus string

const (
	FacilityStatusAvailable FacilityStatus = "available"
	FacilityStatusFull      FacilityStatus = "full"
)

type Facility struct {
	Base
	Name    string `db:"name" json:"name"`
	City    string `db:"city" json:"city"`
	Address string `db:"address" json:"address"`
	Contact string `db:"contact" json:"contact"`
}

// FacilityWithStatus is the read projection returned by the directory.
type FacilityWithStatus struct {
	Facility
	Status FacilityStatus `db:"status" json:"status"`
}

type CreateFacilityRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	City    string `json:"city" validate:"required,max=100"`
	Address string `json:"address" validate:"max=300"`
	Contact string `json:"contact" validate:"max=50"`
}

type UpdateFacilityRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=200"`
	City    *string `json:"city" validate:"omitempty,max=100"`
	Address *string `json:"address" validate:"omitempty,max=300"`
	Contact *string `json:"contact" validate:"omitempty,max=50"`
}

type FacilityFilters struct {
	City string `form:"city"`
	// Status filters on the derived status.
	Status FacilityStatus `form:"status"`
	// Emergency restricts to facilities with at least one free bed.
	Emergency bool `form:"emergency"`
}

// StatusKey is the cache key for a facility's derived status.
func StatusKey(facilityID uuid.UUID) string {
	return "facility-status:" + facilityID.String()
}
