package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/repository"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/fanout"
	"github.com/mediassist/resource-api/pkg/logger"
	"github.com/mediassist/resource-api/pkg/metrics"
)

const (
	statusTTL     = 30 * time.Second
	statusCleanup = 5 * time.Minute
)

// Service is the facility directory. Status is a pure projection of bed
// inventory, cached briefly and invalidated on inventory changes.
type Service struct {
	facilities  repository.FacilityRepository
	inventory   repository.InventoryRepository
	users       repository.UserRepository
	statusCache *gocache.Cache
	metrics     *metrics.Metrics
	logger      *logger.Logger

	subs []*fanout.Subscription
}

func NewService(
	facilities repository.FacilityRepository,
	inventory repository.InventoryRepository,
	users repository.UserRepository,
	dispatcher *fanout.Dispatcher,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Service {
	s := &Service{
		facilities:  facilities,
		inventory:   inventory,
		users:       users,
		statusCache: gocache.New(statusTTL, statusCleanup),
		metrics:     metrics,
		logger:      logger,
	}

	if dispatcher != nil {
		s.subs = append(s.subs,
			dispatcher.Subscribe(model.TopicInventoryChanged, s.onEvent),
			dispatcher.Subscribe(model.TopicFacilityStatusChanged, s.onEvent),
		)
	}
	return s
}

// Close detaches the cache invalidation subscribers.
func (s *Service) Close(dispatcher *fanout.Dispatcher) {
	for _, sub := range s.subs {
		dispatcher.Unsubscribe(sub)
	}
	s.subs = nil
}

func (s *Service) Create(ctx context.Context, req *model.CreateFacilityRequest) (*model.Facility, error) {
	facility := &model.Facility{
		Name:    req.Name,
		City:    req.City,
		Address: req.Address,
		Contact: req.Contact,
	}
	if err := s.facilities.Create(ctx, facility); err != nil {
		return nil, err
	}
	return facility, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.FacilityWithStatus, error) {
	facility, err := s.facilities.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status, err := s.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.FacilityWithStatus{Facility: *facility, Status: status}, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateFacilityRequest) (*model.Facility, error) {
	facility, err := s.facilities.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		facility.Name = *req.Name
	}
	if req.City != nil {
		facility.City = *req.City
	}
	if req.Address != nil {
		facility.Address = *req.Address
	}
	if req.Contact != nil {
		facility.Contact = *req.Contact
	}
	if err := s.facilities.Update(ctx, facility); err != nil {
		return nil, err
	}
	return facility, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.facilities.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.statusCache.Delete(model.StatusKey(id))
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.FacilityFilters) ([]*model.FacilityWithStatus, error) {
	return s.facilities.List(ctx, filters)
}

// EmergencySearch finds facilities with at least one free bed, optionally
// restricted to a city.
func (s *Service) EmergencySearch(ctx context.Context, city string) ([]*model.FacilityWithStatus, error) {
	return s.facilities.List(ctx, &model.FacilityFilters{
		City:      city,
		Emergency: true,
	})
}

// AuthorizeAdmin checks that the acting admin manages the given facility.
func (s *Service) AuthorizeAdmin(ctx context.Context, actor model.Actor, facilityID uuid.UUID) error {
	if actor.Role != model.RoleHospitalAdmin {
		return apperrors.NewForbidden("admin role required", nil)
	}
	user, err := s.users.Get(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if user.FacilityID == nil || *user.FacilityID != facilityID {
		return apperrors.NewForbidden("facility is managed by another admin", nil)
	}
	return nil
}

// Status derives the facility's status from bed inventory. A facility with
// no tracked bed categories counts as available.
func (s *Service) Status(ctx context.Context, facilityID uuid.UUID) (model.FacilityStatus, error) {
	key := model.StatusKey(facilityID)
	if cached, ok := s.statusCache.Get(key); ok {
		return cached.(model.FacilityStatus), nil
	}

	availability, err := s.inventory.BedAvailability(ctx, facilityID)
	if err != nil {
		return "", err
	}

	status := model.FacilityStatusAvailable
	if availability.Categories > 0 && availability.FreeBeds == 0 {
		status = model.FacilityStatusFull
	}

	s.statusCache.Set(key, status, gocache.DefaultExpiration)
	return status, nil
}

// onEvent drops the cached status of the facility an event touches. Stale
// keys also age out on their own after statusTTL.
func (s *Service) onEvent(evt fanout.Event) {
	var facilityID uuid.UUID
	switch payload := evt.Payload.(type) {
	case model.InventoryChangedEvent:
		facilityID = payload.FacilityID
	case model.FacilityStatusChangedEvent:
		facilityID = payload.FacilityID
		if s.metrics != nil {
			s.metrics.FacilityStatusFlips.Inc()
		}
	default:
		return
	}
	s.statusCache.Delete(model.StatusKey(facilityID))
	s.logger.Debug("invalidated facility status cache",
		"facility_id", facilityID.String(), "topic", evt.Topic)
}
