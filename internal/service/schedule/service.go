package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/repository"
	"github.com/mediassist/resource-api/internal/service/event"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/logger"
	"github.com/mediassist/resource-api/pkg/metrics"
)

const dateLayout = "2006-01-02"

// Service is the scheduling calendar: it derives bookable slots from
// provider availability windows and owns the appointment lifecycle.
// Slot claims are serialized per (provider, date, time) by the store.
type Service struct {
	appointments repository.AppointmentRepository
	providers    repository.ProviderRepository
	events       event.Emitter
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          func() time.Time
}

func NewService(
	appointments repository.AppointmentRepository,
	providers repository.ProviderRepository,
	events event.Emitter,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Service {
	return &Service{
		appointments: appointments,
		providers:    providers,
		events:       events,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// ProposeSlots lists the free slots of a provider on a date: the weekly
// windows at the calendar granularity, minus held slots, minus the past.
// An off-duty provider has no bookable slots.
func (s *Service) ProposeSlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]model.Slot, error) {
	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if !provider.Available {
		return []model.Slot{}, nil
	}

	windows, err := s.providers.ListWindows(ctx, providerID)
	if err != nil {
		return nil, err
	}

	held, err := s.appointments.ListByProviderDate(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(held))
	for _, apt := range held {
		taken[apt.Time] = true
	}

	now := s.now()
	slots := []model.Slot{}
	for _, clock := range slotTimes(windows, date.Weekday(), SlotGranularity) {
		if taken[clock] {
			continue
		}
		start, err := slotStart(date, clock)
		if err != nil || !start.After(now) {
			continue
		}
		slots = append(slots, model.Slot{
			ProviderID: providerID,
			Date:       date.Format(dateLayout),
			Time:       clock,
		})
	}
	return slots, nil
}

// Book claims a slot for a patient. The check-and-claim is atomic: of two
// racing calls for the same slot exactly one gets the appointment and the
// other a conflict.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, req *model.BookRequest) (*model.Appointment, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		s.metrics.BookingAttempts.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewValidation(fmt.Sprintf("invalid date %q", req.Date), err)
	}

	start, err := slotStart(date, req.Time)
	if err != nil {
		s.metrics.BookingAttempts.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewValidation(fmt.Sprintf("invalid time %q", req.Time), err)
	}
	if !start.After(s.now()) {
		s.metrics.BookingAttempts.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewValidation("cannot book a slot in the past", nil)
	}

	provider, err := s.providers.Get(ctx, req.ProviderID)
	if err != nil {
		s.metrics.BookingAttempts.WithLabelValues("not_found").Inc()
		return nil, err
	}
	if !provider.Available {
		s.metrics.BookingAttempts.WithLabelValues("unavailable").Inc()
		return nil, apperrors.NewConflict("provider is not accepting appointments", nil)
	}

	windows, err := s.providers.ListWindows(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	if !withinWindows(windows, date.Weekday(), req.Time) {
		s.metrics.BookingAttempts.WithLabelValues("unavailable").Inc()
		return nil, apperrors.NewConflict("provider is not available at that time", nil)
	}

	appointment := &model.Appointment{
		PatientID:  patientID,
		ProviderID: provider.ID,
		FacilityID: provider.FacilityID,
		Date:       date,
		Time:       req.Time,
		Reason:     req.Reason,
		Status:     model.AppointmentStatusScheduled,
	}
	if err := s.appointments.Claim(ctx, appointment); err != nil {
		if apperrors.IsConflict(err) {
			s.metrics.BookingAttempts.WithLabelValues("slot_taken").Inc()
		} else {
			s.metrics.BookingAttempts.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	s.metrics.BookingAttempts.WithLabelValues("booked").Inc()
	s.emitChanged(ctx, appointment)
	return appointment, nil
}

// Cancel frees a slot. Only the owning patient or the owning provider may
// cancel, and only from scheduled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor model.Actor, reason string) (*model.Appointment, error) {
	appointment, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, appointment, actor, false); err != nil {
		return nil, err
	}

	var cancelReason *string
	if reason != "" {
		cancelReason = &reason
	}
	updated, err := s.appointments.Transition(ctx, id, model.AppointmentStatusCancelled, cancelReason)
	if err != nil {
		return nil, err
	}

	s.emitChanged(ctx, updated)
	return updated, nil
}

// Complete marks a visit done. Only the owning provider may complete, and
// only from scheduled.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	appointment, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, appointment, actor, true); err != nil {
		return nil, err
	}

	updated, err := s.appointments.Transition(ctx, id, model.AppointmentStatusCompleted, nil)
	if err != nil {
		return nil, err
	}

	s.emitChanged(ctx, updated)
	return updated, nil
}

// GetForActor returns one appointment, visible only to its patient or its
// provider.
func (s *Service) GetForActor(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	appointment, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, appointment, actor, false); err != nil {
		return nil, err
	}
	return appointment, nil
}

// ListForActor returns the caller's own appointments: by patient for
// patients (most recent first), by provider for doctors (soonest first).
func (s *Service) ListForActor(ctx context.Context, actor model.Actor) ([]*model.Appointment, error) {
	switch actor.Role {
	case model.RolePatient:
		return s.appointments.List(ctx, &model.AppointmentFilters{PatientID: actor.UserID})
	case model.RoleDoctor:
		provider, err := s.providers.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return s.appointments.List(ctx, &model.AppointmentFilters{
			ProviderID:    provider.ID,
			DateAscending: true,
		})
	default:
		return nil, apperrors.NewForbidden("role cannot list appointments", nil)
	}
}

func (s *Service) authorize(ctx context.Context, appointment *model.Appointment, actor model.Actor, providerOnly bool) error {
	switch actor.Role {
	case model.RolePatient:
		if providerOnly {
			return apperrors.NewForbidden("only the provider may complete an appointment", nil)
		}
		if appointment.PatientID != actor.UserID {
			return apperrors.NewForbidden("appointment belongs to another patient", nil)
		}
		return nil
	case model.RoleDoctor:
		provider, err := s.providers.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return apperrors.NewForbidden("caller is not a provider", err)
		}
		if appointment.ProviderID != provider.ID {
			return apperrors.NewForbidden("appointment belongs to another provider", nil)
		}
		return nil
	default:
		return apperrors.NewForbidden("role cannot modify appointments", nil)
	}
}

func (s *Service) emitChanged(ctx context.Context, appointment *model.Appointment) {
	err := s.events.Emit(ctx, model.TopicAppointmentChanged, model.AppointmentChangedEvent{
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		ProviderID:    appointment.ProviderID,
		FacilityID:    appointment.FacilityID,
		Date:          appointment.Date.Format(dateLayout),
		Time:          appointment.Time,
		Status:        appointment.Status,
	})
	if err != nil {
		s.logger.Error(err, "failed to emit appointment change",
			"appointment_id", appointment.ID.String())
	}
}
