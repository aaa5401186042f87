package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/pkg/logger"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	BaseURL  string
}

type smtpService struct {
	dialer *gomail.Dialer
	cfg    Config
	logger *logger.Logger
}

func NewSMTPService(cfg Config, logger *logger.Logger) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
		logger: logger,
	}
}

func (s *smtpService) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(`
		<h2>Welcome, %s</h2>
		<p>Your account is ready. You can now browse facilities and book appointments.</p>
	`, name)
	return s.send(ctx, to, "Welcome to MediAssist", body)
}

func (s *smtpService) SendVerification(ctx context.Context, to, name, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.BaseURL, token)
	body := fmt.Sprintf(`
		<h2>Hello, %s</h2>
		<p>Please verify your email address by clicking the link below:</p>
		<p><a href="%s">Verify email</a></p>
		<p>The link expires in 24 hours.</p>
	`, name, link)
	return s.send(ctx, to, "Verify your email", body)
}

func (s *smtpService) SendAppointmentUpdate(ctx context.Context, to, name string, appointment *model.Appointment) error {
	var subject, lead string
	switch appointment.Status {
	case model.AppointmentStatusScheduled:
		subject = "Appointment confirmed"
		lead = "Your appointment is confirmed."
	case model.AppointmentStatusCancelled:
		subject = "Appointment cancelled"
		lead = "Your appointment has been cancelled."
	case model.AppointmentStatusCompleted:
		subject = "Appointment completed"
		lead = "Your appointment has been marked completed."
	default:
		subject = "Appointment update"
		lead = "Your appointment was updated."
	}

	body := fmt.Sprintf(`
		<h2>Hello, %s</h2>
		<p>%s</p>
		<p>Date: %s at %s</p>
	`, name, lead, appointment.Date.Format("2006-01-02"), appointment.Time)
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	s.logger.Debug("email sent", "to", to, "subject", subject)
	return nil
}
