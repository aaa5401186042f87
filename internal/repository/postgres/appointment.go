package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/repository"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

const appointmentColumns = `
	id, patient_id, provider_id, facility_id,
	appointment_date, appointment_time, reason, status,
	cancel_reason, created_at, updated_at
`

// Claim relies on the partial unique index over
// (provider_id, appointment_date, appointment_time) WHERE status = 'scheduled':
// two racing bookings for one slot resolve to exactly one inserted row.
func (r *appointmentRepository) Claim(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, provider_id, facility_id,
			appointment_date, appointment_time, reason, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (provider_id, appointment_date, appointment_time)
			WHERE status = 'scheduled'
			DO NOTHING
		RETURNING id
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	err := r.db.GetContext(ctx, &appointment.ID, query,
		appointment.ID,
		appointment.PatientID,
		appointment.ProviderID,
		appointment.FacilityID,
		appointment.Date,
		appointment.Time,
		appointment.Reason,
		appointment.Status,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewConflict("slot is already taken", nil)
	}
	if err != nil {
		return fmt.Errorf("failed to claim slot: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.ProviderID != uuid.Nil {
		query += fmt.Sprintf(" AND provider_id = $%d", argCount)
		args = append(args, filters.ProviderID)
		argCount++
	}
	if filters.FacilityID != uuid.Nil {
		query += fmt.Sprintf(" AND facility_id = $%d", argCount)
		args = append(args, filters.FacilityID)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if filters.DateAscending {
		query += " ORDER BY appointment_date ASC, appointment_time ASC"
	} else {
		query += " ORDER BY appointment_date DESC, appointment_time DESC"
	}

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByProviderDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE provider_id = $1
		AND appointment_date = $2
		AND status != $3
		ORDER BY appointment_time ASC
	`
	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, providerID, date, model.AppointmentStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider appointments: %w", err)
	}
	return appointments, nil
}

// Transition only succeeds from scheduled; a zero-row update is resolved
// to not-found or already-terminal by re-reading the row.
func (r *appointmentRepository) Transition(ctx context.Context, id uuid.UUID, to model.AppointmentStatus, cancelReason *string) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2, cancel_reason = COALESCE($3, cancel_reason), updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING ` + appointmentColumns

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id, to, cancelReason, model.AppointmentStatusScheduled)
	if err == nil {
		return &appointment, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to transition appointment: %w", err)
	}

	existing, getErr := r.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apperrors.NewConflict(
		fmt.Sprintf("appointment is already %s", existing.Status), nil)
}
