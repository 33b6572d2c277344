package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/database"
	"github.com/pontaj-digital/pontaj-backend-go/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSetup *TestDatabaseSetup

// openTestDB returns the shared test database. Tests are skipped when no
// database is configured.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testSetup != nil {
		return testSetup.DB
	}

	setup, err := NewTestDatabase(context.Background())
	if errors.Is(err, ErrNoTestDatabase) {
		t.Skip(err.Error())
	}
	require.NoError(t, err)
	testSetup = setup
	return testSetup.DB
}

func setupTestData(t *testing.T, db *database.DB) (workerID, siteID string) {
	ctx := context.Background()
	require.NoError(t, testSetup.TruncateAllTables(ctx))

	err := db.QueryRow(ctx, `
		INSERT INTO users (employee_code, full_name, role)
		VALUES ($1, 'Ion Popescu', 'WORKER') RETURNING id
	`, "EMP-"+uuid.NewString()[:8]).Scan(&workerID)
	require.NoError(t, err)

	err = db.QueryRow(ctx, `
		INSERT INTO sites (name, latitude, longitude, radius_meters, work_start, work_end)
		VALUES ('Bloc A', 44.4268, 26.1025, 300, '07:00', '17:00') RETURNING id
	`).Scan(&siteID)
	require.NoError(t, err)
	return workerID, siteID
}

func TestSegmentRepository_CreateAndLoad(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	workerID, siteID := setupTestData(t, db)

	sites := postgresql.NewSiteRepository(db)
	repo := postgresql.NewSegmentRepository(db)

	site, err := sites.GetByID(ctx, siteID)
	require.NoError(t, err)
	assert.Equal(t, "Bloc A", site.Name)
	require.NotNil(t, site.WorkEnd)
	assert.Equal(t, "17:00", *site.WorkEnd)

	checkIn := time.Now().UTC().Truncate(time.Second).Add(-3 * time.Hour)
	seg := shift.NewSegment(uuid.NewString(), workerID, site, site.Geofence(300), checkIn)
	require.NoError(t, repo.Create(ctx, *seg))

	open, err := repo.GetOpenByWorker(ctx, workerID, false)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, seg.ID, open.ID)
	assert.Equal(t, "Bloc A", open.SiteName)
	require.NotNil(t, open.WorkerName)
	assert.Equal(t, "Ion Popescu", *open.WorkerName)

	require.NoError(t, open.StartBreak(checkIn.Add(time.Hour)))
	require.NoError(t, open.EndBreak(checkIn.Add(90*time.Minute)))
	_, err = open.OpenGeofencePause(checkIn.Add(2 * time.Hour))
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, *open))

	require.NoError(t, open.Close(checkIn.Add(150*time.Minute)))
	require.NoError(t, repo.Update(ctx, *open))

	loaded, err := repo.GetByID(ctx, seg.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsLive())
	require.Len(t, loaded.Breaks, 1)
	require.Len(t, loaded.GeofencePauses, 1)
	assert.True(t, loaded.GeofencePauses[0].End.Equal(checkIn.Add(150*time.Minute)))

	none, err := repo.GetOpenByWorker(ctx, workerID, false)
	require.NoError(t, err)
	assert.Nil(t, none)

	list, err := repo.ListByRange(ctx, checkIn.Add(-time.Minute), checkIn.Add(time.Minute), &workerID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSegmentRepository_GetByID_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := postgresql.NewSegmentRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.NewString())

	assert.ErrorIs(t, err, shift.ErrSegmentNotFound)
}

func TestActivityRepository_AddAndList(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	workerID, siteID := setupTestData(t, db)

	site, err := postgresql.NewSiteRepository(db).GetByID(ctx, siteID)
	require.NoError(t, err)
	seg := shift.NewSegment(uuid.NewString(), workerID, site, site.Geofence(300), time.Now().UTC().Add(-time.Hour))
	require.NoError(t, postgresql.NewSegmentRepository(db).Create(ctx, *seg))

	activities := postgresql.NewActivityRepository(db)
	require.NoError(t, activities.Add(ctx, seg.ID, []shift.ActivityLine{
		{Name: "Zidarie", Quantity: 12.5, UnitType: "mp"},
	}))

	got, err := activities.ListBySegments(ctx, []string{seg.ID})
	require.NoError(t, err)
	require.Len(t, got[seg.ID], 1)
	assert.Equal(t, 12.5, got[seg.ID][0].Quantity)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	workerID, siteID := setupTestData(t, db)

	site, err := postgresql.NewSiteRepository(db).GetByID(ctx, siteID)
	require.NoError(t, err)
	repo := postgresql.NewSegmentRepository(db)
	seg := shift.NewSegment(uuid.NewString(), workerID, site, site.Geofence(300), time.Now().UTC())

	err = postgresql.NewTransactor(db).WithinTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, *seg); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = repo.GetByID(ctx, seg.ID)
	assert.ErrorIs(t, err, shift.ErrSegmentNotFound)
}
