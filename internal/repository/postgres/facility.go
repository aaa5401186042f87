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

type facilityRepository struct {
	BaseRepository
}

func NewFacilityRepository(base BaseRepository) repository.FacilityRepository {
	return &facilityRepository{base}
}

func (r *facilityRepository) Create(ctx context.Context, facility *model.Facility) error {
	query := `
		INSERT INTO facilities (id, name, city, address, contact, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	facility.ID = uuid.New()
	facility.CreatedAt = time.Now()
	facility.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		facility.ID,
		facility.Name,
		facility.City,
		facility.Address,
		facility.Contact,
		facility.CreatedAt,
		facility.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create facility: %w", err)
	}
	return nil
}

func (r *facilityRepository) Get(ctx context.Context, id uuid.UUID) (*model.Facility, error) {
	query := `
		SELECT id, name, city, address, contact, created_at, updated_at, deleted_at
		FROM facilities
		WHERE id = $1 AND deleted_at IS NULL
	`
	var facility model.Facility
	err := r.db.GetContext(ctx, &facility, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("facility", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get facility: %w", err)
	}
	return &facility, nil
}

func (r *facilityRepository) Update(ctx context.Context, facility *model.Facility) error {
	query := `
		UPDATE facilities
		SET name = $2, city = $3, address = $4, contact = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
	`
	facility.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		facility.ID,
		facility.Name,
		facility.City,
		facility.Address,
		facility.Contact,
		facility.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update facility: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("facility", nil)
	}
	return nil
}

// SoftDelete closes a facility without removing its rows; closed
// facilities disappear from directory reads.
func (r *facilityRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE facilities
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to close facility: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NewNotFound("facility", nil)
	}
	return nil
}

// List computes the derived status inline: full iff the facility tracks
// bed categories and none has availability.
func (r *facilityRepository) List(ctx context.Context, filters *model.FacilityFilters) ([]*model.FacilityWithStatus, error) {
	query := `
		SELECT f.id, f.name, f.city, f.address, f.contact,
			   f.created_at, f.updated_at, f.deleted_at,
			   CASE WHEN COUNT(rc.id) FILTER (WHERE rc.kind = 'bed') > 0
					 AND COALESCE(SUM(rc.available_count) FILTER (WHERE rc.kind = 'bed'), 0) = 0
					THEN 'full' ELSE 'available' END AS status
		FROM facilities f
		LEFT JOIN resource_categories rc ON rc.facility_id = f.id
		WHERE f.deleted_at IS NULL
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil && filters.City != "" {
		query += fmt.Sprintf(" AND f.city = $%d", argCount)
		args = append(args, filters.City)
		argCount++
	}

	query += " GROUP BY f.id"

	if filters != nil {
		if filters.Status != "" {
			if filters.Status == model.FacilityStatusFull {
				query += ` HAVING COUNT(rc.id) FILTER (WHERE rc.kind = 'bed') > 0
					AND COALESCE(SUM(rc.available_count) FILTER (WHERE rc.kind = 'bed'), 0) = 0`
			} else {
				query += ` HAVING COUNT(rc.id) FILTER (WHERE rc.kind = 'bed') = 0
					OR COALESCE(SUM(rc.available_count) FILTER (WHERE rc.kind = 'bed'), 0) > 0`
			}
		} else if filters.Emergency {
			query += ` HAVING COALESCE(SUM(rc.available_count) FILTER (WHERE rc.kind = 'bed'), 0) > 0`
		}
	}

	query += " ORDER BY f.name"

	var facilities []*model.FacilityWithStatus
	err := r.db.SelectContext(ctx, &facilities, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	return facilities, nil
}
