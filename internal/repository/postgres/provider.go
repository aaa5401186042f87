package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/repository"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
)

type providerRepository struct {
	BaseRepository
}

func NewProviderRepository(base BaseRepository) repository.ProviderRepository {
	return &providerRepository{base}
}

func (r *providerRepository) Create(ctx context.Context, provider *model.Provider) error {
	query := `
		INSERT INTO providers (
			id, user_id, facility_id, name, specialization, available,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	provider.ID = uuid.New()
	provider.CreatedAt = time.Now()
	provider.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		provider.ID,
		provider.UserID,
		provider.FacilityID,
		provider.Name,
		provider.Specialization,
		provider.Available,
		provider.CreatedAt,
		provider.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

func (r *providerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	query := `
		SELECT id, user_id, facility_id, name, specialization, available,
			   created_at, updated_at, deleted_at
		FROM providers
		WHERE id = $1 AND deleted_at IS NULL
	`
	var provider model.Provider
	err := r.db.GetContext(ctx, &provider, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("provider", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return &provider, nil
}

func (r *providerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Provider, error) {
	query := `
		SELECT id, user_id, facility_id, name, specialization, available,
			   created_at, updated_at, deleted_at
		FROM providers
		WHERE user_id = $1 AND deleted_at IS NULL
	`
	var provider model.Provider
	err := r.db.GetContext(ctx, &provider, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("provider", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider by user: %w", err)
	}
	return &provider, nil
}

func (r *providerRepository) List(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, error) {
	query := `
		SELECT id, user_id, facility_id, name, specialization, available,
			   created_at, updated_at, deleted_at
		FROM providers
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.FacilityID != uuid.Nil {
			query += fmt.Sprintf(" AND facility_id = $%d", argCount)
			args = append(args, filters.FacilityID)
			argCount++
		}
		if filters.Specialization != "" {
			query += fmt.Sprintf(" AND specialization = $%d", argCount)
			args = append(args, filters.Specialization)
			argCount++
		}
		if filters.AvailableOnly {
			query += " AND available = TRUE"
		}
	}

	query += " ORDER BY name"

	var providers []*model.Provider
	err := r.db.SelectContext(ctx, &providers, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	return providers, nil
}

func (r *providerRepository) SetAvailable(ctx context.Context, id uuid.UUID, available bool) error {
	query := `
		UPDATE providers
		SET available = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, available)
	if err != nil {
		return fmt.Errorf("failed to set provider availability: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("provider", nil)
	}
	return nil
}

// ReplaceWindows swaps the full weekly schedule in one transaction,
// matching the dashboard's replace-all update.
func (r *providerRepository) ReplaceWindows(ctx context.Context, providerID uuid.UUID, windows []*model.AvailabilityWindow) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM availability_windows WHERE provider_id = $1`, providerID); err != nil {
			return fmt.Errorf("failed to clear availability windows: %w", err)
		}

		query := `
			INSERT INTO availability_windows (id, provider_id, weekday, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, w := range windows {
			w.ID = uuid.New()
			w.ProviderID = providerID
			if _, err := tx.ExecContext(ctx, query,
				w.ID, w.ProviderID, int(w.Weekday), w.StartTime, w.EndTime); err != nil {
				return fmt.Errorf("failed to insert availability window: %w", err)
			}
		}
		return nil
	})
}

func (r *providerRepository) ListWindows(ctx context.Context, providerID uuid.UUID) ([]*model.AvailabilityWindow, error) {
	query := `
		SELECT id, provider_id, weekday, start_time, end_time
		FROM availability_windows
		WHERE provider_id = $1
		ORDER BY weekday, start_time
	`
	var windows []*model.AvailabilityWindow
	err := r.db.SelectContext(ctx, &windows, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability windows: %w", err)
	}
	return windows, nil
}
