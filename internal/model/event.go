package model

import (
	"github.com/google/uuid"
)

// Event topics. Ordering is guaranteed per topic per publisher only.
const (
	TopicInventoryChanged      = "inventory.changed"
	TopicAppointmentChanged    = "appointment.changed"
	TopicFacilityStatusChanged = "facility.status_changed"
)

type InventoryChangedEvent struct {
	FacilityID     uuid.UUID    `json:"facility_id"`
	Kind           ResourceKind `json:"kind"`
	Name           string       `json:"name"`
	TotalCount     int          `json:"total_count"`
	AvailableCount int          `json:"available_count"`
}

type AppointmentChangedEvent struct {
	AppointmentID uuid.UUID         `json:"appointment_id"`
	PatientID     uuid.UUID         `json:"patient_id"`
	ProviderID    uuid.UUID         `json:"provider_id"`
	FacilityID    uuid.UUID         `json:"facility_id"`
	Date          string            `json:"date"`
	Time          string            `json:"time"`
	Status        AppointmentStatus `json:"status"`
}

type FacilityStatusChangedEvent struct {
	FacilityID uuid.UUID      `json:"facility_id"`
	Status     FacilityStatus `json:"status"`
}
