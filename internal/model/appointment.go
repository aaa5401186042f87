package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// Appointment holds one slot: the (provider, date, time) triple is unique
// among non-cancelled appointments.
type Appointment struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	PatientID    uuid.UUID         `db:"patient_id" json:"patient_id"`
	ProviderID   uuid.UUID         `db:"provider_id" json:"provider_id"`
	FacilityID   uuid.UUID         `db:"facility_id" json:"facility_id"`
	Date         time.Time         `db:"appointment_date" json:"date"`
	Time         string            `db:"appointment_time" json:"time"`
	Reason       string            `db:"reason" json:"reason,omitempty"`
	Status       AppointmentStatus `db:"status" json:"status"`
	CancelReason *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

// Slot is a bookable (provider, date, time) unit at the calendar's
// granularity.
type Slot struct {
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
}

type BookRequest struct {
	ProviderID uuid.UUID `json:"provider_id" validate:"required"`
	Date       string    `json:"date" validate:"required,datetime=2006-01-02"`
	Time       string    `json:"time" validate:"required,datetime=15:04"`
	Reason     string    `json:"reason" validate:"max=500"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type AppointmentFilters struct {
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	FacilityID uuid.UUID
	Status     AppointmentStatus
	// DateAscending orders by date/time ascending when true (provider
	// view), descending otherwise (patient view).
	DateAscending bool
}
