package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mediassist/resource-api/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdateEmailVerified(ctx context.Context, id uuid.UUID, verified bool) error
}

type TokenRepository interface {
	StoreVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	ValidateVerificationToken(ctx context.Context, token string) (uuid.UUID, error)
	InvalidateVerificationToken(ctx context.Context, token string) error
	RevokeToken(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type FacilityRepository interface {
	Create(ctx context.Context, facility *model.Facility) error
	Get(ctx context.Context, id uuid.UUID) (*model.Facility, error)
	Update(ctx context.Context, facility *model.Facility) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.FacilityFilters) ([]*model.FacilityWithStatus, error)
}

type InventoryRepository interface {
	// Adjust applies delta to available_count of one category as a single
	// conditional update. It fails with a conflict when the result would
	// leave [0, total_count], with no partial effect.
	Adjust(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind, name string, delta int) (int, error)
	Upsert(ctx context.Context, category *model.ResourceCategory) error
	Get(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind, name string) (*model.ResourceCategory, error)
	List(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind) ([]*model.ResourceCategory, error)
	BedAvailability(ctx context.Context, facilityID uuid.UUID) (*model.BedAvailability, error)
}

type ProviderRepository interface {
	Create(ctx context.Context, provider *model.Provider) error
	Get(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Provider, error)
	List(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, error)
	SetAvailable(ctx context.Context, id uuid.UUID, available bool) error
	ReplaceWindows(ctx context.Context, providerID uuid.UUID, windows []*model.AvailabilityWindow) error
	ListWindows(ctx context.Context, providerID uuid.UUID) ([]*model.AvailabilityWindow, error)
}

type AppointmentRepository interface {
	// Claim inserts the appointment iff its slot is free among
	// non-cancelled appointments; the loser of a race gets a conflict.
	Claim(ctx context.Context, appointment *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	ListByProviderDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]*model.Appointment, error)
	// Transition moves the appointment from scheduled to the given status,
	// distinguishing not-found from already-terminal.
	Transition(ctx context.Context, id uuid.UUID, to model.AppointmentStatus, cancelReason *string) (*model.Appointment, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
	IncrementRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error
	MoveToDeadLetter(ctx context.Context, event *model.OutboxEvent) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
