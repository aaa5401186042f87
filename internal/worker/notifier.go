package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mediassist/resource-api/internal/email"
	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/repository"
	"github.com/mediassist/resource-api/pkg/logger"
	"github.com/mediassist/resource-api/pkg/messaging"
)

// Notifier consumes appointment change events from the broker and mails
// the affected patient. Sends are best-effort and duplicates are possible
// under at-least-once delivery, so the mail content is idempotent.
type Notifier struct {
	broker messaging.Broker
	users  repository.UserRepository
	email  email.Service
	logger *logger.Logger
}

func NewNotifier(
	broker messaging.Broker,
	users repository.UserRepository,
	email email.Service,
	logger *logger.Logger,
) *Notifier {
	return &Notifier{
		broker: broker,
		users:  users,
		email:  email,
		logger: logger,
	}
}

func (n *Notifier) Start(ctx context.Context) error {
	messages, err := n.broker.Subscribe(ctx, model.TopicAppointmentChanged)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", model.TopicAppointmentChanged, err)
	}

	n.logger.Info("starting appointment notifier")
	for {
		select {
		case <-ctx.Done():
			n.logger.Info("shutting down appointment notifier")
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := n.handle(ctx, msg); err != nil {
				n.logger.Error(err, "failed to handle appointment event")
			}
		}
	}
}

func (n *Notifier) handle(ctx context.Context, raw []byte) error {
	var evt model.AppointmentChangedEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return fmt.Errorf("failed to decode appointment event: %w", err)
	}

	patient, err := n.users.Get(ctx, evt.PatientID)
	if err != nil {
		return fmt.Errorf("failed to load patient %s: %w", evt.PatientID, err)
	}

	date, err := time.Parse("2006-01-02", evt.Date)
	if err != nil {
		return fmt.Errorf("invalid date in event: %w", err)
	}

	appointment := &model.Appointment{
		PatientID:  evt.PatientID,
		ProviderID: evt.ProviderID,
		FacilityID: evt.FacilityID,
		Date:       date,
		Time:       evt.Time,
		Status:     evt.Status,
	}
	appointment.ID = evt.AppointmentID

	if err := n.email.SendAppointmentUpdate(ctx, patient.Email, patient.Name, appointment); err != nil {
		return fmt.Errorf("failed to send appointment mail: %w", err)
	}

	n.logger.Debug("appointment notification sent",
		"appointment_id", evt.AppointmentID.String(),
		"status", string(evt.Status))
	return nil
}
