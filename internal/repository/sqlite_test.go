package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"examseat/common/config"
	"examseat/common/database"
	"examseat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(&config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "examseat.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db, database.DriverSQLite))
	return db
}

func TestSQLite_EnsureSchemaIsIdempotent(t *testing.T) {
	db := openTestSQLite(t)
	require.NoError(t, EnsureSchema(context.Background(), db, database.DriverSQLite))
}

func TestSQLite_RoomsCatalog(t *testing.T) {
	db := openTestSQLite(t)
	repo := NewSQLRoomsRepository(db, database.DriverSQLite)
	ctx := context.Background()

	require.NoError(t, repo.UpsertRoom(ctx, domain.Room{RoomID: "B", Capacity: 3, Position: 2}))
	require.NoError(t, repo.UpsertRoom(ctx, domain.Room{RoomID: "A", Capacity: 2, Position: 1}))
	require.NoError(t, repo.UpsertRoom(ctx, domain.Room{RoomID: "B", Capacity: 4, Position: 2}))

	rooms, err := repo.ListRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Room{{RoomID: "A", Capacity: 2, Position: 1}, {RoomID: "B", Capacity: 4, Position: 2}}, rooms)

	// CHECK (capacity >= 0)
	assert.Error(t, repo.UpsertRoom(ctx, domain.Room{RoomID: "C", Capacity: -1}))

	require.NoError(t, repo.DeleteRoom(ctx, "A"))
	_, err = repo.GetRoom(ctx, "A")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_DatasetLifecycle(t *testing.T) {
	db := openTestSQLite(t)
	repo := NewSQLAllocationsRepository(db, database.DriverSQLite)
	ctx := context.Background()
	name := "allocation_math"

	create := func(runID string, recs []domain.AssignmentRecord) error {
		return repo.WithinTx(ctx, func(tx AllocationsRepository) error {
			if err := tx.DestroyDataset(ctx, name); err != nil {
				return err
			}
			if err := tx.CreateDataset(ctx, DatasetHeader{Name: name, Subject: "Math", RunID: runID, CreatedAt: time.Now()}); err != nil {
				return err
			}
			return tx.BulkInsert(ctx, name, recs)
		})
	}

	require.NoError(t, create("run-1", []domain.AssignmentRecord{
		{RoomID: "A", Occupants: []string{"s1", "s2"}, OccupantCount: 2, Subject: "Math", Capacity: 2},
		{RoomID: "B", Occupants: []string{"s3", "s4"}, OccupantCount: 2, Subject: "Math", Capacity: 3},
	}))

	ok, err := repo.DatasetExists(ctx, name)
	require.NoError(t, err)
	assert.True(t, ok)

	h, err := repo.GetDataset(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "run-1", h.RunID)

	require.NoError(t, repo.UpdateOne(ctx, name, "A", []string{"s1"}, 1))
	rec, err := repo.SelectOne(ctx, name, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, rec.Occupants)
	assert.Equal(t, 1, rec.OccupantCount)

	// 重新分配：旧数据完全丢弃
	require.NoError(t, create("run-2", []domain.AssignmentRecord{
		{RoomID: "C", Occupants: []string{"x"}, OccupantCount: 1, Subject: "Math", Capacity: 1},
	}))
	all, err := repo.SelectAll(ctx, name)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "C", all[0].RoomID)

	// 事务失败时保留旧数据
	err = create("run-3", []domain.AssignmentRecord{
		{RoomID: "D", Subject: "Math"},
		{RoomID: "D", Subject: "Math"},
	})
	require.Error(t, err)
	all, err = repo.SelectAll(ctx, name)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "C", all[0].RoomID)

	require.NoError(t, repo.DestroyDataset(ctx, name))
	require.NoError(t, repo.DestroyDataset(ctx, name))
	names, err := repo.ListDatasetNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = repo.SelectOne(ctx, name, "C")
	assert.ErrorIs(t, err, ErrNotFound)
}
