package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/repository"
	"github.com/mediassist/resource-api/internal/service/event"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/logger"
	"github.com/mediassist/resource-api/pkg/metrics"
)

// Service is the inventory ledger. All count mutations go through it and
// preserve 0 <= available_count <= total_count per category, with
// serialization per (facility, kind, name) delegated to the store.
type Service struct {
	repo    repository.InventoryRepository
	events  event.Emitter
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(repo repository.InventoryRepository, events event.Emitter, metrics *metrics.Metrics, logger *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// Adjust applies delta to a category's available count. Positive delta
// releases capacity, negative delta consumes it. The whole operation is
// rejected with a conflict if it would leave the [0, total] bounds.
func (s *Service) Adjust(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind, name string, delta int) (int, error) {
	if !kind.Valid() {
		return 0, apperrors.NewValidation(fmt.Sprintf("unknown resource kind %q", kind), nil)
	}
	if delta == 0 {
		return 0, apperrors.NewValidation("delta must be non-zero", nil)
	}

	statusBefore := s.bedStatus(ctx, facilityID, kind)

	newCount, err := s.repo.Adjust(ctx, facilityID, kind, name, delta)
	if err != nil {
		s.metrics.InventoryAdjustments.WithLabelValues(string(kind), "rejected").Inc()
		return 0, err
	}
	s.metrics.InventoryAdjustments.WithLabelValues(string(kind), "applied").Inc()

	category, err := s.repo.Get(ctx, facilityID, kind, name)
	if err != nil {
		// The adjust committed; report it even if the re-read failed.
		s.logger.Error(err, "failed to re-read category after adjust")
		category = &model.ResourceCategory{
			FacilityID:     facilityID,
			Kind:           kind,
			Name:           name,
			AvailableCount: newCount,
		}
	}

	s.emitChanged(ctx, category)
	s.emitStatusFlip(ctx, facilityID, kind, statusBefore)

	return newCount, nil
}

// SetTotals is the idempotent admin overwrite. The requested available
// count is clamped into [0, total] and the clamping is reported rather
// than silently applied.
func (s *Service) SetTotals(ctx context.Context, facilityID uuid.UUID, req *model.SetTotalsRequest) (*model.SetTotalsResult, error) {
	if !req.Kind.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown resource kind %q", req.Kind), nil)
	}
	if req.TotalCount < 0 {
		return nil, apperrors.NewValidation("total_count must not be negative", nil)
	}

	statusBefore := s.bedStatus(ctx, facilityID, req.Kind)

	available := req.AvailableCount
	clamped := false
	if available > req.TotalCount {
		available = req.TotalCount
		clamped = true
	}
	if available < 0 {
		available = 0
		clamped = true
	}

	category := &model.ResourceCategory{
		FacilityID:     facilityID,
		Kind:           req.Kind,
		Name:           req.Name,
		TotalCount:     req.TotalCount,
		AvailableCount: available,
	}
	if err := s.repo.Upsert(ctx, category); err != nil {
		return nil, err
	}

	s.emitChanged(ctx, category)
	s.emitStatusFlip(ctx, facilityID, req.Kind, statusBefore)

	return &model.SetTotalsResult{Category: category, Clamped: clamped}, nil
}

// BulkSetTotals applies the dashboard's bulk edit, item by item. Items
// are independent: a failing item does not roll back the preceding ones,
// and the per-item results say what happened.
func (s *Service) BulkSetTotals(ctx context.Context, facilityID uuid.UUID, req *model.BulkSetTotalsRequest) ([]*model.SetTotalsResult, error) {
	results := make([]*model.SetTotalsResult, 0, len(req.Items))
	for i := range req.Items {
		result, err := s.SetTotals(ctx, facilityID, &req.Items[i])
		if err != nil {
			return results, fmt.Errorf("item %d (%s/%s): %w", i, req.Items[i].Kind, req.Items[i].Name, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) List(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind) ([]*model.ResourceCategory, error) {
	if kind != "" && !kind.Valid() {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown resource kind %q", kind), nil)
	}
	return s.repo.List(ctx, facilityID, kind)
}

func (s *Service) emitChanged(ctx context.Context, category *model.ResourceCategory) {
	err := s.events.Emit(ctx, model.TopicInventoryChanged, model.InventoryChangedEvent{
		FacilityID:     category.FacilityID,
		Kind:           category.Kind,
		Name:           category.Name,
		TotalCount:     category.TotalCount,
		AvailableCount: category.AvailableCount,
	})
	if err != nil {
		s.logger.Error(err, "failed to emit inventory change",
			"facility_id", category.FacilityID.String())
	}
}

// bedStatus returns the derived status before a bed mutation, or "" when
// the mutation cannot flip it.
func (s *Service) bedStatus(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind) model.FacilityStatus {
	if kind != model.ResourceKindBed {
		return ""
	}
	availability, err := s.repo.BedAvailability(ctx, facilityID)
	if err != nil {
		return ""
	}
	return deriveStatus(availability)
}

func (s *Service) emitStatusFlip(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind, before model.FacilityStatus) {
	if kind != model.ResourceKindBed || before == "" {
		return
	}
	availability, err := s.repo.BedAvailability(ctx, facilityID)
	if err != nil {
		return
	}
	after := deriveStatus(availability)
	if after == before {
		return
	}
	err = s.events.Emit(ctx, model.TopicFacilityStatusChanged, model.FacilityStatusChangedEvent{
		FacilityID: facilityID,
		Status:     after,
	})
	if err != nil {
		s.logger.Error(err, "failed to emit facility status change",
			"facility_id", facilityID.String())
	}
}

func deriveStatus(availability *model.BedAvailability) model.FacilityStatus {
	if availability.Categories > 0 && availability.FreeBeds == 0 {
		return model.FacilityStatusFull
	}
	return model.FacilityStatusAvailable
}
