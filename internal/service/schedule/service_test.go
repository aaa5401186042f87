package schedule

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
	"github.com/mediassist/resource-api/pkg/metrics"
)

// Shared across tests: prometheus collectors register globally once.
var testMetrics = metrics.NewMetrics("test", "schedule")

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Claim(ctx context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.appointments {
		if existing.ProviderID == appointment.ProviderID &&
			existing.Date.Equal(appointment.Date) &&
			existing.Time == appointment.Time &&
			existing.Status == model.AppointmentStatusScheduled {
			return apperrors.NewConflict("slot is already taken", nil)
		}
	}
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt
	clone := *appointment
	r.appointments[appointment.ID] = &clone
	return nil
}

func (r *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	clone := *apt
	return &clone, nil
}

func (r *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if filters.PatientID != uuid.Nil && apt.PatientID != filters.PatientID {
			continue
		}
		if filters.ProviderID != uuid.Nil && apt.ProviderID != filters.ProviderID {
			continue
		}
		clone := *apt
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) ListByProviderDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range r.appointments {
		if apt.ProviderID == providerID && apt.Date.Equal(date) && apt.Status != model.AppointmentStatusCancelled {
			clone := *apt
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) Transition(ctx context.Context, id uuid.UUID, to model.AppointmentStatus, cancelReason *string) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	apt, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	if apt.Status != model.AppointmentStatusScheduled {
		return nil, apperrors.NewConflict("appointment is already "+string(apt.Status), nil)
	}
	apt.Status = to
	if cancelReason != nil {
		apt.CancelReason = cancelReason
	}
	apt.UpdatedAt = time.Now()
	clone := *apt
	return &clone, nil
}

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
	if p, ok := r.providers[id]; ok {
		p.Available = available
	}
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

type recordingEmitter struct {
	mu     sync.Mutex
	topics []string
}

func (e *recordingEmitter) Emit(ctx context.Context, topic string, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.topics = append(e.topics, topic)
	return nil
}

type fixture struct {
	svc        *Service
	repo       *fakeAppointmentRepo
	providers  *fakeProviderRepo
	emitter    *recordingEmitter
	providerID uuid.UUID
	doctorID   uuid.UUID
}

// newFixture builds a service whose clock is frozen at Monday 2026-03-02
// 08:00 UTC, with one on-duty provider working Mondays 09:00-11:00.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeAppointmentRepo()
	providers := newFakeProviderRepo()
	emitter := &recordingEmitter{}

	doctorID := uuid.New()
	provider := &model.Provider{
		UserID:     doctorID,
		FacilityID: uuid.New(),
		Name:       "Dr. Adams",
		Available:  true,
	}
	require.NoError(t, providers.Create(context.Background(), provider))
	providers.windows[provider.ID] = []*model.AvailabilityWindow{
		{ProviderID: provider.ID, Weekday: time.Monday, StartTime: "09:00", EndTime: "11:00"},
	}

	svc := NewService(repo, providers, emitter, testMetrics, logger.NewLogger(nil))
	svc.now = func() time.Time {
		return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	}

	return &fixture{
		svc:        svc,
		repo:       repo,
		providers:  providers,
		emitter:    emitter,
		providerID: provider.ID,
		doctorID:   doctorID,
	}
}

func monday() time.Time {
	return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}

func TestProposeSlotsExcludesBooked(t *testing.T) {
	f := newFixture(t)
	patientID := uuid.New()

	_, err := f.svc.Book(context.Background(), patientID, &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-02",
		Time:       "09:30",
	})
	require.NoError(t, err)

	slots, err := f.svc.ProposeSlots(context.Background(), f.providerID, monday())
	require.NoError(t, err)

	times := make([]string, 0, len(slots))
	for _, s := range slots {
		times = append(times, s.Time)
	}
	assert.Equal(t, []string{"09:00", "10:00", "10:30"}, times)
}

func TestProposeSlotsExcludesPast(t *testing.T) {
	f := newFixture(t)
	f.svc.now = func() time.Time {
		return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	}

	slots, err := f.svc.ProposeSlots(context.Background(), f.providerID, monday())
	require.NoError(t, err)

	times := make([]string, 0, len(slots))
	for _, s := range slots {
		times = append(times, s.Time)
	}
	assert.Equal(t, []string{"10:30"}, times)
}

func TestProposeSlotsOffDuty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.providers.SetAvailable(context.Background(), f.providerID, false))

	slots, err := f.svc.ProposeSlots(context.Background(), f.providerID, monday())
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestBookPastSlotRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), uuid.New(), &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-01",
		Time:       "09:00",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestBookOutsideWindowRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), uuid.New(), &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-02",
		Time:       "13:00",
	})
	assert.True(t, apperrors.IsConflict(err))

	// Unaligned time inside the window is not a slot either.
	_, err = f.svc.Book(context.Background(), uuid.New(), &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-02",
		Time:       "09:15",
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestBookOffDutyRejected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.providers.SetAvailable(context.Background(), f.providerID, false))

	_, err := f.svc.Book(context.Background(), uuid.New(), &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-02",
		Time:       "09:00",
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestBookRaceExactlyOneWins(t *testing.T) {
	f := newFixture(t)

	const racers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	conflicts := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), uuid.New(), &model.BookRequest{
				ProviderID: f.providerID,
				Date:       "2026-03-02",
				Time:       "10:00",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case apperrors.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, racers-1, conflicts)
}

func TestCancelFreesSlotForRebooking(t *testing.T) {
	f := newFixture(t)
	patientID := uuid.New()

	apt, err := f.svc.Book(context.Background(), patientID, &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-02",
		Time:       "09:00",
	})
	require.NoError(t, err)

	actor := model.Actor{UserID: patientID, Role: model.RolePatient}
	cancelled, err := f.svc.Cancel(context.Background(), apt.ID, actor, "conflict of plans")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "conflict of plans", *cancelled.CancelReason)

	// The slot opens up again.
	_, err = f.svc.Book(context.Background(), uuid.New(), &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-02",
		Time:       "09:00",
	})
	assert.NoError(t, err)
}

func TestCancelByStrangerForbidden(t *testing.T) {
	f := newFixture(t)
	patientID := uuid.New()

	apt, err := f.svc.Book(context.Background(), patientID, &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-02",
		Time:       "09:00",
	})
	require.NoError(t, err)

	stranger := model.Actor{UserID: uuid.New(), Role: model.RolePatient}
	_, err = f.svc.Cancel(context.Background(), apt.ID, stranger, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestCompleteRequiresOwningProvider(t *testing.T) {
	f := newFixture(t)
	patientID := uuid.New()

	apt, err := f.svc.Book(context.Background(), patientID, &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-02",
		Time:       "09:00",
	})
	require.NoError(t, err)

	// The patient cannot complete.
	_, err = f.svc.Complete(context.Background(), apt.ID, model.Actor{UserID: patientID, Role: model.RolePatient})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))

	// The owning provider can.
	doctor := model.Actor{UserID: f.doctorID, Role: model.RoleDoctor}
	completed, err := f.svc.Complete(context.Background(), apt.ID, doctor)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, completed.Status)
}

func TestTerminalAppointmentRejectsFurtherTransitions(t *testing.T) {
	f := newFixture(t)
	patientID := uuid.New()

	apt, err := f.svc.Book(context.Background(), patientID, &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-02",
		Time:       "09:00",
	})
	require.NoError(t, err)

	doctor := model.Actor{UserID: f.doctorID, Role: model.RoleDoctor}
	_, err = f.svc.Complete(context.Background(), apt.ID, doctor)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), apt.ID, model.Actor{UserID: patientID, Role: model.RolePatient}, "")
	assert.True(t, apperrors.IsConflict(err))

	_, err = f.svc.Complete(context.Background(), apt.ID, doctor)
	assert.True(t, apperrors.IsConflict(err))
}

func TestBookEmitsAppointmentChanged(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), uuid.New(), &model.BookRequest{
		ProviderID: f.providerID,
		Date:       "2026-03-02",
		Time:       "09:00",
	})
	require.NoError(t, err)

	f.emitter.mu.Lock()
	defer f.emitter.mu.Unlock()
	assert.Contains(t, f.emitter.topics, model.TopicAppointmentChanged)
}
