package repository

import (
	"context"
	"database/sql"
	"fmt"

	"examseat/common/database"
)

// 固定表结构：科目不再对应独立的物理表
const (
	createRoomsTable = `
		CREATE TABLE IF NOT EXISTS rooms (
			room_id    TEXT PRIMARY KEY,
			capacity   INTEGER NOT NULL CHECK (capacity >= 0),
			sort_order INTEGER NOT NULL DEFAULT 0
		)`

	createDatasetsTable = `
		CREATE TABLE IF NOT EXISTS allocation_datasets (
			dataset_name TEXT PRIMARY KEY,
			subject      TEXT NOT NULL,
			run_id       TEXT NOT NULL,
			created_at   %s NOT NULL
		)`

	createRecordsTable = `
		CREATE TABLE IF NOT EXISTS allocation_records (
			dataset_name   TEXT NOT NULL REFERENCES allocation_datasets (dataset_name) ON DELETE CASCADE,
			room_id        TEXT NOT NULL,
			sort_order     INTEGER NOT NULL,
			subject        TEXT NOT NULL,
			capacity       INTEGER NOT NULL,
			occupants      TEXT NOT NULL DEFAULT '[]',
			occupant_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset_name, room_id)
		)`

	createRecordsOrderIndex = `
		CREATE INDEX IF NOT EXISTS idx_allocation_records_order
			ON allocation_records (dataset_name, sort_order)`
)

// SchemaStatements 返回指定驱动的建表语句
func SchemaStatements(driver string) []string {
	ts := "TIMESTAMPTZ"
	if driver == database.DriverSQLite {
		ts = "DATETIME"
	}
	return []string{
		createRoomsTable,
		fmt.Sprintf(createDatasetsTable, ts),
		createRecordsTable,
		createRecordsOrderIndex,
	}
}

// EnsureSchema 启动时建表（幂等）
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	for _, stmt := range SchemaStatements(driver) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
