package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"examseat/internal/domain"
)

// SQLAllocationsRepository 分配结果Repository（postgres / sqlite 共用）
// occupants 以 JSON 数组文本存储
type SQLAllocationsRepository struct {
	db     *sql.DB
	q      querier
	driver string
}

// NewSQLAllocationsRepository 创建分配结果Repository
func NewSQLAllocationsRepository(db *sql.DB, driver string) *SQLAllocationsRepository {
	return &SQLAllocationsRepository{db: db, q: db, driver: driver}
}

var (
	_ AllocationsRepository = (*SQLAllocationsRepository)(nil)
	_ Transactor            = (*SQLAllocationsRepository)(nil)
)

// WithinTx 在事务中执行 fn；已在事务中时直接复用
func (r *SQLAllocationsRepository) WithinTx(ctx context.Context, fn func(repo AllocationsRepository) error) error {
	if _, inTx := r.q.(*sql.Tx); inTx {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	txRepo := &SQLAllocationsRepository{db: r.db, q: tx, driver: r.driver}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *SQLAllocationsRepository) ListDatasetNames(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT dataset_name FROM allocation_datasets ORDER BY dataset_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan dataset name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasets: %w", err)
	}
	return names, nil
}

func (r *SQLAllocationsRepository) DatasetExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		rebind(r.driver, `SELECT COUNT(*) FROM allocation_datasets WHERE dataset_name = $1`), name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check dataset: %w", err)
	}
	return n > 0, nil
}

func (r *SQLAllocationsRepository) GetDataset(ctx context.Context, name string) (*DatasetHeader, error) {
	query := rebind(r.driver, `
		SELECT dataset_name, subject, run_id, created_at
		FROM allocation_datasets
		WHERE dataset_name = $1
	`)
	var h DatasetHeader
	err := r.q.QueryRowContext(ctx, query, name).Scan(&h.Name, &h.Subject, &h.RunID, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("dataset %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return &h, nil
}

func (r *SQLAllocationsRepository) DestroyDataset(ctx context.Context, name string) error {
	// 先删记录再删头，不依赖外键级联
	if _, err := r.q.ExecContext(ctx,
		rebind(r.driver, `DELETE FROM allocation_records WHERE dataset_name = $1`), name); err != nil {
		return fmt.Errorf("failed to delete allocation records: %w", err)
	}
	if _, err := r.q.ExecContext(ctx,
		rebind(r.driver, `DELETE FROM allocation_datasets WHERE dataset_name = $1`), name); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	return nil
}

func (r *SQLAllocationsRepository) CreateDataset(ctx context.Context, h DatasetHeader) error {
	query := rebind(r.driver, `
		INSERT INTO allocation_datasets (dataset_name, subject, run_id, created_at)
		VALUES ($1, $2, $3, $4)
	`)
	if _, err := r.q.ExecContext(ctx, query, h.Name, h.Subject, h.RunID, h.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

func (r *SQLAllocationsRepository) BulkInsert(ctx context.Context, name string, records []domain.AssignmentRecord) error {
	query := rebind(r.driver, `
		INSERT INTO allocation_records
			(dataset_name, room_id, sort_order, subject, capacity, occupants, occupant_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	for i, rec := range records {
		occupants, err := encodeOccupants(rec.Occupants)
		if err != nil {
			return err
		}
		if _, err := r.q.ExecContext(ctx, query,
			name, rec.RoomID, i, rec.Subject, rec.Capacity, occupants, rec.OccupantCount,
		); err != nil {
			return fmt.Errorf("failed to insert allocation record %s: %w", rec.RoomID, err)
		}
	}
	return nil
}

const selectRecordColumns = `room_id, sort_order, subject, capacity, occupants, occupant_count`

func (r *SQLAllocationsRepository) SelectAll(ctx context.Context, name string) ([]domain.AssignmentRecord, error) {
	query := rebind(r.driver, `
		SELECT `+selectRecordColumns+`
		FROM allocation_records
		WHERE dataset_name = $1
		ORDER BY sort_order, room_id
	`)
	rows, err := r.q.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to select allocation records: %w", err)
	}
	defer rows.Close()

	out := []domain.AssignmentRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocation records: %w", err)
	}
	return out, nil
}

func (r *SQLAllocationsRepository) SelectOne(ctx context.Context, name, roomID string) (*domain.AssignmentRecord, error) {
	query := rebind(r.driver, `
		SELECT `+selectRecordColumns+`
		FROM allocation_records
		WHERE dataset_name = $1 AND room_id = $2
	`)
	rec, err := scanRecord(r.q.QueryRowContext(ctx, query, name, roomID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("allocation record %s/%s: %w", name, roomID, ErrNotFound)
		}
		return nil, err
	}
	return rec, nil
}

func (r *SQLAllocationsRepository) UpdateOne(ctx context.Context, name, roomID string, occupants []string, count int) error {
	encoded, err := encodeOccupants(occupants)
	if err != nil {
		return err
	}
	query := rebind(r.driver, `
		UPDATE allocation_records
		SET occupants = $1, occupant_count = $2
		WHERE dataset_name = $3 AND room_id = $4
	`)
	res, err := r.q.ExecContext(ctx, query, encoded, count, name, roomID)
	if err != nil {
		return fmt.Errorf("failed to update allocation record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("allocation record %s/%s: %w", name, roomID, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*domain.AssignmentRecord, error) {
	var (
		rec       domain.AssignmentRecord
		occupants string
	)
	if err := s.Scan(&rec.RoomID, &rec.Position, &rec.Subject, &rec.Capacity, &occupants, &rec.OccupantCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan allocation record: %w", err)
	}
	list, err := decodeOccupants(occupants)
	if err != nil {
		return nil, fmt.Errorf("allocation record %s: %w", rec.RoomID, err)
	}
	rec.Occupants = list
	return &rec, nil
}
