package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/repository"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/logger"
)

// Service manages provider profiles and their weekly schedules.
type Service struct {
	providers repository.ProviderRepository
	logger    *logger.Logger
}

func NewService(providers repository.ProviderRepository, logger *logger.Logger) *Service {
	return &Service{
		providers: providers,
		logger:    logger,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	return s.providers.Get(ctx, id)
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Provider, error) {
	return s.providers.GetByUserID(ctx, userID)
}

func (s *Service) List(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, error) {
	return s.providers.List(ctx, filters)
}

func (s *Service) ListWindows(ctx context.Context, providerID uuid.UUID) ([]*model.AvailabilityWindow, error) {
	return s.providers.ListWindows(ctx, providerID)
}

// ReplaceWindows swaps the caller's full weekly schedule atomically.
// Existing appointments are untouched; only future slot derivation changes.
func (s *Service) ReplaceWindows(ctx context.Context, userID uuid.UUID, req *model.UpdateAvailabilityRequest) ([]*model.AvailabilityWindow, error) {
	provider, err := s.providers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	windows := make([]*model.AvailabilityWindow, 0, len(req.Windows))
	for i, in := range req.Windows {
		if err := validateWindow(in); err != nil {
			return nil, apperrors.NewValidation(fmt.Sprintf("window %d: %v", i, err), nil)
		}
		windows = append(windows, &model.AvailabilityWindow{
			ID:         uuid.New(),
			ProviderID: provider.ID,
			Weekday:    time.Weekday(in.Weekday),
			StartTime:  in.StartTime,
			EndTime:    in.EndTime,
		})
	}

	if err := s.providers.ReplaceWindows(ctx, provider.ID, windows); err != nil {
		return nil, err
	}

	s.logger.Info("provider schedule replaced",
		"provider_id", provider.ID.String(), "windows", len(windows))
	return windows, nil
}

// SetDuty flips the caller's on/off-duty toggle.
func (s *Service) SetDuty(ctx context.Context, userID uuid.UUID, available bool) (*model.Provider, error) {
	provider, err := s.providers.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.providers.SetAvailable(ctx, provider.ID, available); err != nil {
		return nil, err
	}
	provider.Available = available
	return provider, nil
}

func validateWindow(in model.WindowInput) error {
	if in.Weekday < 0 || in.Weekday > 6 {
		return fmt.Errorf("weekday %d out of range", in.Weekday)
	}
	start, err := time.Parse("15:04", in.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start_time %q", in.StartTime)
	}
	end, err := time.Parse("15:04", in.EndTime)
	if err != nil {
		return fmt.Errorf("invalid end_time %q", in.EndTime)
	}
	if !end.After(start) {
		return fmt.Errorf("end_time %q must be after start_time %q", in.EndTime, in.StartTime)
	}
	return nil
}
