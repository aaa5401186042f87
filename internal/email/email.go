package email

import (
	"context"

	"github.com/mediassist/resource-api/internal/model"
)

// Service sends transactional mail. Delivery is best-effort: callers must
// not fail their own operation when a send fails.
type Service interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendVerification(ctx context.Context, to, name, token string) error
	SendAppointmentUpdate(ctx context.Context, to, name string, appointment *model.Appointment) error
}
