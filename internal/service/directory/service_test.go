package directory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediassist/resource-api/internal/model"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/fanout"
	"github.com/mediassist/resource-api/pkg/logger"
	"github.com/mediassist/resource-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("test", "directory")

type fakeFacilityRepo struct {
	mu         sync.Mutex
	facilities map[uuid.UUID]*model.Facility
}

func newFakeFacilityRepo() *fakeFacilityRepo {
	return &fakeFacilityRepo{facilities: make(map[uuid.UUID]*model.Facility)}
}

func (r *fakeFacilityRepo) Create(ctx context.Context, facility *model.Facility) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if facility.ID == uuid.Nil {
		facility.ID = uuid.New()
	}
	clone := *facility
	r.facilities[facility.ID] = &clone
	return nil
}

func (r *fakeFacilityRepo) Get(ctx context.Context, id uuid.UUID) (*model.Facility, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.facilities[id]
	if !ok {
		return nil, apperrors.NewNotFound("facility", nil)
	}
	clone := *f
	return &clone, nil
}

func (r *fakeFacilityRepo) Update(ctx context.Context, facility *model.Facility) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.facilities[facility.ID]; !ok {
		return apperrors.NewNotFound("facility", nil)
	}
	clone := *facility
	r.facilities[facility.ID] = &clone
	return nil
}

func (r *fakeFacilityRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.facilities[id]; !ok {
		return apperrors.NewNotFound("facility", nil)
	}
	delete(r.facilities, id)
	return nil
}

func (r *fakeFacilityRepo) List(ctx context.Context, filters *model.FacilityFilters) ([]*model.FacilityWithStatus, error) {
	return nil, nil
}

type fakeBedRepo struct {
	mu           sync.Mutex
	availability map[uuid.UUID]model.BedAvailability
}

func newFakeBedRepo() *fakeBedRepo {
	return &fakeBedRepo{availability: make(map[uuid.UUID]model.BedAvailability)}
}

func (r *fakeBedRepo) set(facilityID uuid.UUID, categories, freeBeds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.availability[facilityID] = model.BedAvailability{Categories: categories, FreeBeds: freeBeds}
}

func (r *fakeBedRepo) Adjust(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind, name string, delta int) (int, error) {
	return 0, nil
}

func (r *fakeBedRepo) Upsert(ctx context.Context, category *model.ResourceCategory) error {
	return nil
}

func (r *fakeBedRepo) Get(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind, name string) (*model.ResourceCategory, error) {
	return nil, apperrors.NewNotFound("resource category", nil)
}

func (r *fakeBedRepo) List(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind) ([]*model.ResourceCategory, error) {
	return nil, nil
}

func (r *fakeBedRepo) BedAvailability(ctx context.Context, facilityID uuid.UUID) (*model.BedAvailability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	avail := r.availability[facilityID]
	return &avail, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", nil)
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, apperrors.NewNotFound("user", nil)
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error { return nil }

func (r *fakeUserRepo) UpdateEmailVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeFacilityRepo, *fakeBedRepo, *fakeUserRepo, *fanout.Dispatcher) {
	t.Helper()
	nop := zerolog.Nop()
	dispatcher := fanout.NewDispatcher(&nop)
	facilities := newFakeFacilityRepo()
	beds := newFakeBedRepo()
	users := newFakeUserRepo()
	svc := NewService(facilities, beds, users, dispatcher, testMetrics, logger.NewLogger(nil))
	t.Cleanup(func() { svc.Close(dispatcher) })
	return svc, facilities, beds, users, dispatcher
}

func TestStatusDerivation(t *testing.T) {
	svc, _, beds, _, _ := newTestService(t)
	facilityID := uuid.New()

	// No tracked bed categories: available.
	status, err := svc.Status(context.Background(), facilityID)
	require.NoError(t, err)
	assert.Equal(t, model.FacilityStatusAvailable, status)

	// Some categories empty but one has beds: available.
	other := uuid.New()
	beds.set(other, 2, 3)
	status, err = svc.Status(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, model.FacilityStatusAvailable, status)

	// All categories at zero: full.
	full := uuid.New()
	beds.set(full, 2, 0)
	status, err = svc.Status(context.Background(), full)
	require.NoError(t, err)
	assert.Equal(t, model.FacilityStatusFull, status)
}

func TestStatusIsCachedUntilInvalidated(t *testing.T) {
	svc, _, beds, _, dispatcher := newTestService(t)
	facilityID := uuid.New()
	beds.set(facilityID, 1, 0)

	status, err := svc.Status(context.Background(), facilityID)
	require.NoError(t, err)
	assert.Equal(t, model.FacilityStatusFull, status)

	// The underlying counts change but the cached value sticks.
	beds.set(facilityID, 1, 4)
	status, err = svc.Status(context.Background(), facilityID)
	require.NoError(t, err)
	assert.Equal(t, model.FacilityStatusFull, status)

	// An inventory change event invalidates the cache.
	dispatcher.Publish(fanout.Event{
		Topic:   model.TopicInventoryChanged,
		Payload: model.InventoryChangedEvent{FacilityID: facilityID, Kind: model.ResourceKindBed},
	})

	require.Eventually(t, func() bool {
		status, err := svc.Status(context.Background(), facilityID)
		return err == nil && status == model.FacilityStatusAvailable
	}, time.Second, 10*time.Millisecond)
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	svc, facilities, _, _, _ := newTestService(t)

	facility, err := svc.Create(context.Background(), &model.CreateFacilityRequest{
		Name: "City General",
		City: "Springfield",
	})
	require.NoError(t, err)

	newCity := "Shelbyville"
	updated, err := svc.Update(context.Background(), facility.ID, &model.UpdateFacilityRequest{
		City: &newCity,
	})
	require.NoError(t, err)
	assert.Equal(t, "City General", updated.Name)
	assert.Equal(t, "Shelbyville", updated.City)

	stored, err := facilities.Get(context.Background(), facility.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", stored.City)
}

func TestAuthorizeAdmin(t *testing.T) {
	svc, _, _, users, _ := newTestService(t)

	facilityID := uuid.New()
	admin := &model.User{Role: model.RoleHospitalAdmin, FacilityID: &facilityID}
	require.NoError(t, users.Create(context.Background(), admin))

	actor := model.Actor{UserID: admin.ID, Role: model.RoleHospitalAdmin}
	assert.NoError(t, svc.AuthorizeAdmin(context.Background(), actor, facilityID))

	err := svc.AuthorizeAdmin(context.Background(), actor, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))

	patient := model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	err = svc.AuthorizeAdmin(context.Background(), patient, facilityID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}
