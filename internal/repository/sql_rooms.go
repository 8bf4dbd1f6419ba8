package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"examseat/internal/domain"
)

// SQLRoomsRepository 考场目录（postgres / sqlite）
type SQLRoomsRepository struct {
	db     *sql.DB
	driver string
}

// NewSQLRoomsRepository 创建考场Repository
func NewSQLRoomsRepository(db *sql.DB, driver string) *SQLRoomsRepository {
	return &SQLRoomsRepository{db: db, driver: driver}
}

// 确保实现了接口
var _ RoomsRepository = (*SQLRoomsRepository)(nil)

// ListRooms 按目录顺序返回所有考场
func (r *SQLRoomsRepository) ListRooms(ctx context.Context) ([]domain.Room, error) {
	query := `
		SELECT room_id, capacity, sort_order
		FROM rooms
		ORDER BY sort_order, room_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []domain.Room{}
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.RoomID, &room.Capacity, &room.Position); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}
	return rooms, nil
}

// GetRoom 根据room_id获取考场
func (r *SQLRoomsRepository) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	query := rebind(r.driver, `
		SELECT room_id, capacity, sort_order
		FROM rooms
		WHERE room_id = $1
	`)
	var room domain.Room
	err := r.db.QueryRowContext(ctx, query, roomID).Scan(&room.RoomID, &room.Capacity, &room.Position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

// UpsertRoom 新建或更新考场容量/顺序
func (r *SQLRoomsRepository) UpsertRoom(ctx context.Context, room domain.Room) error {
	query := rebind(r.driver, `
		INSERT INTO rooms (room_id, capacity, sort_order)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id) DO UPDATE SET
			capacity = EXCLUDED.capacity,
			sort_order = EXCLUDED.sort_order
	`)
	if _, err := r.db.ExecContext(ctx, query, room.RoomID, room.Capacity, room.Position); err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	return nil
}

// DeleteRoom 删除考场；已生成的分配记录保留其容量快照
func (r *SQLRoomsRepository) DeleteRoom(ctx context.Context, roomID string) error {
	res, err := r.db.ExecContext(ctx, rebind(r.driver, `DELETE FROM rooms WHERE room_id = $1`), roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	return nil
}
