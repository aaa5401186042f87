package model

import (
	"time"

	"github.com/google/uuid"
)

// ResourceKind is the class of countable facility resource.
type ResourceKind string

const (
	ResourceKindBed       ResourceKind = "bed"
	ResourceKindEquipment ResourceKind = "equipment"
)

func (k ResourceKind) Valid() bool {
	return k == ResourceKindBed || k == ResourceKindEquipment
}

// ResourceCategory tracks counts for one named resource class at one
// facility. Invariant: 0 <= available_count <= total_count, enforced by
// the ledger under concurrent mutation.
type ResourceCategory struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	FacilityID     uuid.UUID    `db:"facility_id" json:"facility_id"`
	Kind           ResourceKind `db:"kind" json:"kind"`
	Name           string       `db:"name" json:"name"`
	TotalCount     int          `db:"total_count" json:"total_count"`
	AvailableCount int          `db:"available_count" json:"available_count"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

type AdjustRequest struct {
	Kind ResourceKind `json:"kind" validate:"required,oneof=bed equipment"`
	Name string       `json:"name" validate:"required,max=100"`
	// Delta is positive for release, negative for consume.
	Delta int `json:"delta" validate:"required"`
}

type SetTotalsRequest struct {
	Kind           ResourceKind `json:"kind" validate:"required,oneof=bed equipment"`
	Name           string       `json:"name" validate:"required,max=100"`
	TotalCount     int          `json:"total_count" validate:"min=0"`
	AvailableCount int          `json:"available_count" validate:"min=0"`
}

type BulkSetTotalsRequest struct {
	Items []SetTotalsRequest `json:"items" validate:"required,min=1,dive"`
}

// SetTotalsResult reports the committed category and whether the
// requested available count had to be clamped into [0, total].
type SetTotalsResult struct {
	Category *ResourceCategory `json:"category"`
	Clamped  bool              `json:"clamped"`
}

// BedAvailability summarizes the bed inventory used to derive facility
// status.
type BedAvailability struct {
	Categories int `db:"categories"`
	FreeBeds   int `db:"free_beds"`
}
