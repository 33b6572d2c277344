package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/database"
)

type siteRepository struct {
	db *database.DB
}

// GetByID implements shift.SiteRepository.
func (r *siteRepository) GetByID(ctx context.Context, id string) (shift.Site, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, latitude, longitude, radius_meters,
			   work_start, work_end, max_overtime_minutes, is_active
		FROM sites
		WHERE id = $1
	`

	var site shift.Site
	err := q.QueryRow(ctx, query, id).Scan(
		&site.ID, &site.Name, &site.Latitude, &site.Longitude, &site.RadiusMeters,
		&site.WorkStart, &site.WorkEnd, &site.MaxOvertimeMinutes, &site.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Site{}, shift.ErrSiteNotFound
		}
		return shift.Site{}, fmt.Errorf("failed to get site: %w", err)
	}

	return site, nil
}

func NewSiteRepository(db *database.DB) shift.SiteRepository {
	return &siteRepository{db: db}
}

type activityRepository struct {
	db *database.DB
}

// Add implements shift.ActivityRepository.
func (r *activityRepository) Add(ctx context.Context, segmentID string, lines []shift.ActivityLine) error {
	if len(lines) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	for _, l := range lines {
		if _, err := q.Exec(ctx, `
			INSERT INTO shift_activities (segment_id, name, quantity, unit_type)
			VALUES ($1, $2, $3, $4)
		`, segmentID, l.Name, l.Quantity, l.UnitType); err != nil {
			return fmt.Errorf("failed to add activity %q: %w", l.Name, err)
		}
	}
	return nil
}

// ListBySegments implements shift.ActivityRepository.
func (r *activityRepository) ListBySegments(ctx context.Context, segmentIDs []string) (map[string][]shift.ActivityLine, error) {
	result := make(map[string][]shift.ActivityLine)
	if len(segmentIDs) == 0 {
		return result, nil
	}
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT segment_id, name, quantity, unit_type
		FROM shift_activities
		WHERE segment_id = ANY($1::uuid[])
		ORDER BY created_at
	`, segmentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			segmentID string
			line      shift.ActivityLine
		)
		if err := rows.Scan(&segmentID, &line.Name, &line.Quantity, &line.UnitType); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		result[segmentID] = append(result[segmentID], line)
	}
	return result, rows.Err()
}

func NewActivityRepository(db *database.DB) shift.ActivityRepository {
	return &activityRepository{db: db}
}
