package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/database"
)

const (
	intervalKindBreak = "BREAK"
	intervalKindPause = "GEOFENCE_PAUSE"
)

const segmentColumns = `
		s.id, s.worker_id, s.site_id, st.name,
		s.check_in_at, s.check_out_at,
		s.geofence_latitude, s.geofence_longitude, s.geofence_radius_meters,
		s.gps_lost, s.last_ping_at, s.self_declared, s.audit_note,
		s.check_in_latitude, s.check_in_longitude, s.check_out_latitude, s.check_out_longitude,
		s.overtime_minutes, s.overtime_approved, s.overtime_approved_by, s.overtime_approved_at,
		s.created_at, s.updated_at, u.full_name
	FROM shift_segments s
	JOIN sites st ON st.id = s.site_id
	JOIN users u ON u.id = s.worker_id`

type segmentRepository struct {
	db *database.DB
}

func scanSegment(row pgx.Row) (shift.Segment, error) {
	var seg shift.Segment
	err := row.Scan(
		&seg.ID, &seg.WorkerID, &seg.SiteID, &seg.SiteName,
		&seg.CheckInAt, &seg.CheckOutAt,
		&seg.Geofence.Latitude, &seg.Geofence.Longitude, &seg.Geofence.RadiusMeters,
		&seg.GPSLost, &seg.LastPingAt, &seg.SelfDeclared, &seg.AuditNote,
		&seg.CheckInLatitude, &seg.CheckInLongitude, &seg.CheckOutLatitude, &seg.CheckOutLongitude,
		&seg.OvertimeMinutes, &seg.OvertimeApproved, &seg.OvertimeApprovedBy, &seg.OvertimeApprovedAt,
		&seg.CreatedAt, &seg.UpdatedAt, &seg.WorkerName,
	)
	return seg, err
}

// Create implements shift.SegmentRepository.
func (r *segmentRepository) Create(ctx context.Context, seg shift.Segment) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO shift_segments (
			id, worker_id, site_id, check_in_at, check_out_at,
			geofence_latitude, geofence_longitude, geofence_radius_meters,
			gps_lost, last_ping_at, self_declared, audit_note,
			check_in_latitude, check_in_longitude,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := q.Exec(ctx, query,
		seg.ID, seg.WorkerID, seg.SiteID, seg.CheckInAt, seg.CheckOutAt,
		seg.Geofence.Latitude, seg.Geofence.Longitude, seg.Geofence.RadiusMeters,
		seg.GPSLost, seg.LastPingAt, seg.SelfDeclared, seg.AuditNote,
		seg.CheckInLatitude, seg.CheckInLongitude,
		seg.CreatedAt, seg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create segment: %w", err)
	}

	return r.saveIntervals(ctx, q, seg)
}

// GetByID implements shift.SegmentRepository.
func (r *segmentRepository) GetByID(ctx context.Context, id string) (shift.Segment, error) {
	q := GetQuerier(ctx, r.db)

	seg, err := scanSegment(q.QueryRow(ctx, `SELECT `+segmentColumns+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Segment{}, shift.ErrSegmentNotFound
		}
		return shift.Segment{}, fmt.Errorf("failed to get segment: %w", err)
	}

	list := []shift.Segment{seg}
	if err := r.loadIntervals(ctx, q, list); err != nil {
		return shift.Segment{}, err
	}
	return list[0], nil
}

// GetOpenByWorker implements shift.SegmentRepository.
func (r *segmentRepository) GetOpenByWorker(ctx context.Context, workerID string, forUpdate bool) (*shift.Segment, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + segmentColumns + `
		WHERE s.worker_id = $1 AND s.check_out_at IS NULL
		ORDER BY s.check_in_at DESC
		LIMIT 1`
	if forUpdate {
		query += ` FOR UPDATE OF s`
	}

	seg, err := scanSegment(q.QueryRow(ctx, query, workerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open segment: %w", err)
	}

	list := []shift.Segment{seg}
	if err := r.loadIntervals(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Update implements shift.SegmentRepository.
func (r *segmentRepository) Update(ctx context.Context, seg shift.Segment) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE shift_segments SET
			check_out_at = $2,
			gps_lost = $3,
			last_ping_at = $4,
			self_declared = $5,
			audit_note = $6,
			check_out_latitude = $7,
			check_out_longitude = $8,
			overtime_minutes = $9,
			overtime_approved = $10,
			overtime_approved_by = $11,
			overtime_approved_at = $12,
			updated_at = $13
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query,
		seg.ID, seg.CheckOutAt, seg.GPSLost, seg.LastPingAt, seg.SelfDeclared, seg.AuditNote,
		seg.CheckOutLatitude, seg.CheckOutLongitude,
		seg.OvertimeMinutes, seg.OvertimeApproved, seg.OvertimeApprovedBy, seg.OvertimeApprovedAt,
		seg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update segment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shift.ErrSegmentNotFound
	}

	return r.saveIntervals(ctx, q, seg)
}

// ListLive implements shift.SegmentRepository.
func (r *segmentRepository) ListLive(ctx context.Context) ([]shift.Segment, error) {
	q := GetQuerier(ctx, r.db)
	return r.list(ctx, q, `SELECT `+segmentColumns+` WHERE s.check_out_at IS NULL ORDER BY s.check_in_at`)
}

// ListByRange implements shift.SegmentRepository.
func (r *segmentRepository) ListByRange(ctx context.Context, from, to time.Time, workerID *string) ([]shift.Segment, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + segmentColumns + `
		WHERE s.check_in_at >= $1 AND s.check_in_at < $2
		  AND ($3::uuid IS NULL OR s.worker_id = $3)
		ORDER BY s.check_in_at`

	return r.list(ctx, q, query, from, to, workerID)
}

func (r *segmentRepository) list(ctx context.Context, q database.Querier, query string, args ...interface{}) ([]shift.Segment, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	defer rows.Close()

	var segments []shift.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate segments: %w", err)
	}

	if err := r.loadIntervals(ctx, q, segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// loadIntervals fills breaks and pauses of segments in one round trip.
func (r *segmentRepository) loadIntervals(ctx context.Context, q database.Querier, segments []shift.Segment) error {
	if len(segments) == 0 {
		return nil
	}

	ids := make([]string, len(segments))
	index := make(map[string]int, len(segments))
	for i, seg := range segments {
		ids[i] = seg.ID
		index[seg.ID] = i
	}

	rows, err := q.Query(ctx, `
		SELECT id, segment_id, kind, start_at, end_at, distance_meters, latitude, longitude
		FROM shift_intervals
		WHERE segment_id = ANY($1::uuid[])
		ORDER BY start_at, created_at
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load intervals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			iv        shift.Interval
			segmentID string
			kind      string
		)
		if err := rows.Scan(&iv.ID, &segmentID, &kind, &iv.Start, &iv.End, &iv.DistanceMeters, &iv.Latitude, &iv.Longitude); err != nil {
			return fmt.Errorf("failed to scan interval: %w", err)
		}
		seg := &segments[index[segmentID]]
		if kind == intervalKindBreak {
			seg.Breaks = append(seg.Breaks, iv)
		} else {
			seg.GeofencePauses = append(seg.GeofencePauses, iv)
		}
	}
	return rows.Err()
}

// saveIntervals upserts every interval of seg. Intervals are append-only, so
// only the end of an existing row can change. New intervals get their ID here.
func (r *segmentRepository) saveIntervals(ctx context.Context, q database.Querier, seg shift.Segment) error {
	query := `
		INSERT INTO shift_intervals (id, segment_id, kind, start_at, end_at, distance_meters, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET end_at = EXCLUDED.end_at
	`

	save := func(list []shift.Interval, kind string) error {
		for i := range list {
			if list[i].ID == "" {
				list[i].ID = uuid.NewString()
			}
			iv := list[i]
			if _, err := q.Exec(ctx, query, iv.ID, seg.ID, kind, iv.Start, iv.End, iv.DistanceMeters, iv.Latitude, iv.Longitude); err != nil {
				return fmt.Errorf("failed to save %s interval: %w", kind, err)
			}
		}
		return nil
	}

	if err := save(seg.Breaks, intervalKindBreak); err != nil {
		return err
	}
	return save(seg.GeofencePauses, intervalKindPause)
}

func NewSegmentRepository(db *database.DB) shift.SegmentRepository {
	return &segmentRepository{db: db}
}
