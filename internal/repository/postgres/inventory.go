package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediassist/resource-api/internal/model"
	"github.com/mediassist/resource-api/internal/repository"
	apperrors "github.com/mediassist/resource-api/pkg/errors"
)

type inventoryRepository struct {
	BaseRepository
}

func NewInventoryRepository(base BaseRepository) repository.InventoryRepository {
	return &inventoryRepository{base}
}

// Adjust is a single conditional UPDATE so the bounds check and the write
// commit atomically; concurrent adjusters serialize on the row lock.
func (r *inventoryRepository) Adjust(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind, name string, delta int) (int, error) {
	query := `
		UPDATE resource_categories
		SET available_count = available_count + $4, updated_at = NOW()
		WHERE facility_id = $1 AND kind = $2 AND name = $3
		AND available_count + $4 >= 0
		AND available_count + $4 <= total_count
		RETURNING available_count
	`
	var newCount int
	err := r.db.GetContext(ctx, &newCount, query, facilityID, kind, name, delta)
	if err == nil {
		return newCount, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust inventory: %w", err)
	}

	// No row matched: either the category is missing or the delta would
	// leave [0, total]. Distinguish for the caller.
	if _, getErr := r.Get(ctx, facilityID, kind, name); getErr != nil {
		return 0, getErr
	}
	return 0, apperrors.NewConflict(
		fmt.Sprintf("adjustment of %d would violate availability bounds for %s/%s", delta, kind, name), nil)
}

func (r *inventoryRepository) Upsert(ctx context.Context, category *model.ResourceCategory) error {
	query := `
		INSERT INTO resource_categories (
			id, facility_id, kind, name, total_count, available_count, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (facility_id, kind, name) DO UPDATE
		SET total_count = EXCLUDED.total_count,
			available_count = EXCLUDED.available_count,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	category.UpdatedAt = time.Now()

	err := r.db.GetContext(ctx, &category.ID, query,
		category.ID,
		category.FacilityID,
		category.Kind,
		category.Name,
		category.TotalCount,
		category.AvailableCount,
		category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert resource category: %w", err)
	}
	return nil
}

func (r *inventoryRepository) Get(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind, name string) (*model.ResourceCategory, error) {
	query := `
		SELECT id, facility_id, kind, name, total_count, available_count, updated_at
		FROM resource_categories
		WHERE facility_id = $1 AND kind = $2 AND name = $3
	`
	var category model.ResourceCategory
	err := r.db.GetContext(ctx, &category, query, facilityID, kind, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("resource category", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource category: %w", err)
	}
	return &category, nil
}

func (r *inventoryRepository) List(ctx context.Context, facilityID uuid.UUID, kind model.ResourceKind) ([]*model.ResourceCategory, error) {
	query := `
		SELECT id, facility_id, kind, name, total_count, available_count, updated_at
		FROM resource_categories
		WHERE facility_id = $1
	`
	args := []interface{}{facilityID}
	if kind != "" {
		query += " AND kind = $2"
		args = append(args, kind)
	}
	query += " ORDER BY kind, name"

	var categories []*model.ResourceCategory
	err := r.db.SelectContext(ctx, &categories, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resource categories: %w", err)
	}
	return categories, nil
}

func (r *inventoryRepository) BedAvailability(ctx context.Context, facilityID uuid.UUID) (*model.BedAvailability, error) {
	query := `
		SELECT COUNT(*) AS categories,
			   COALESCE(SUM(available_count), 0) AS free_beds
		FROM resource_categories
		WHERE facility_id = $1 AND kind = $2
	`
	var availability model.BedAvailability
	err := r.db.GetContext(ctx, &availability, query, facilityID, model.ResourceKindBed)
	if err != nil {
		return nil, fmt.Errorf("failed to get bed availability: %w", err)
	}
	return &availability, nil
}
