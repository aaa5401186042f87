package provider

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediassist/resource-api/internal/model"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
	"github.com/mediassist/resource-api/pkg/logger"
)

type fakeProviderRepo struct {
	mu        sync.Mutex
	providers map[uuid.UUID]*model.Provider
	windows   map[uuid.UUID][]*model.AvailabilityWindow
}

func newFakeProviderRepo() *fakeProviderRepo {
	return &fakeProviderRepo{
		providers: make(map[uuid.UUID]*model.Provider),
		windows:   make(map[uuid.UUID][]*model.AvailabilityWindow),
	}
}

func (r *fakeProviderRepo) Create(ctx context.Context, provider *model.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if provider.ID == uuid.Nil {
		provider.ID = uuid.New()
	}
	clone := *provider
	r.providers[provider.ID] = &clone
	return nil
}

func (r *fakeProviderRepo) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, apperrors.NewNotFound("provider", nil)
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProviderRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		if p.UserID == userID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, apperrors.NewNotFound("provider", nil)
}

func (r *fakeProviderRepo) List(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, error) {
	return nil, nil
}

func (r *fakeProviderRepo) SetAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[id]
	if !ok {
		return apperrors.NewNotFound("provider", nil)
	}
	p.Available = available
	return nil
}

func (r *fakeProviderRepo) ReplaceWindows(ctx context.Context, providerID uuid.UUID, windows []*model.AvailabilityWindow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[providerID] = windows
	return nil
}

func (r *fakeProviderRepo) ListWindows(ctx context.Context, providerID uuid.UUID) ([]*model.AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.windows[providerID], nil
}

func setup(t *testing.T) (*Service, *fakeProviderRepo, uuid.UUID) {
	t.Helper()
	repo := newFakeProviderRepo()
	userID := uuid.New()
	require.NoError(t, repo.Create(context.Background(), &model.Provider{
		UserID:    userID,
		Name:      "Dr. Okafor",
		Available: true,
	}))
	return NewService(repo, logger.NewLogger(nil)), repo, userID
}

func TestReplaceWindows(t *testing.T) {
	svc, repo, userID := setup(t)

	windows, err := svc.ReplaceWindows(context.Background(), userID, &model.UpdateAvailabilityRequest{
		Windows: []model.WindowInput{
			{Weekday: 1, StartTime: "09:00", EndTime: "12:00"},
			{Weekday: 3, StartTime: "14:00", EndTime: "17:00"},
		},
	})
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, time.Monday, windows[0].Weekday)

	// A second call replaces, not appends.
	windows, err = svc.ReplaceWindows(context.Background(), userID, &model.UpdateAvailabilityRequest{
		Windows: []model.WindowInput{
			{Weekday: 5, StartTime: "08:00", EndTime: "10:00"},
		},
	})
	require.NoError(t, err)
	require.Len(t, windows, 1)

	provider, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	stored, err := repo.ListWindows(context.Background(), provider.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestReplaceWindowsEmptyClearsSchedule(t *testing.T) {
	svc, repo, userID := setup(t)

	_, err := svc.ReplaceWindows(context.Background(), userID, &model.UpdateAvailabilityRequest{
		Windows: []model.WindowInput{{Weekday: 1, StartTime: "09:00", EndTime: "12:00"}},
	})
	require.NoError(t, err)

	windows, err := svc.ReplaceWindows(context.Background(), userID, &model.UpdateAvailabilityRequest{})
	require.NoError(t, err)
	assert.Empty(t, windows)

	provider, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	stored, err := repo.ListWindows(context.Background(), provider.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestReplaceWindowsValidation(t *testing.T) {
	svc, _, userID := setup(t)

	cases := []model.WindowInput{
		{Weekday: 7, StartTime: "09:00", EndTime: "10:00"},
		{Weekday: 1, StartTime: "9am", EndTime: "10:00"},
		{Weekday: 1, StartTime: "09:00", EndTime: "late"},
		{Weekday: 1, StartTime: "10:00", EndTime: "09:00"},
		{Weekday: 1, StartTime: "10:00", EndTime: "10:00"},
	}
	for _, in := range cases {
		_, err := svc.ReplaceWindows(context.Background(), userID, &model.UpdateAvailabilityRequest{
			Windows: []model.WindowInput{in},
		})
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation), "window %+v must be rejected", in)
	}
}

func TestSetDuty(t *testing.T) {
	svc, repo, userID := setup(t)

	provider, err := svc.SetDuty(context.Background(), userID, false)
	require.NoError(t, err)
	assert.False(t, provider.Available)

	stored, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, stored.Available)

	provider, err = svc.SetDuty(context.Background(), userID, true)
	require.NoError(t, err)
	assert.True(t, provider.Available)
}

func TestSetDutyUnknownUser(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.SetDuty(context.Background(), uuid.New(), false)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}
