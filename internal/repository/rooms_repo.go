package repository

import (
	"context"

	"examseat/internal/domain"
)

// RoomsRepository 考场目录
// ListRooms 按目录顺序（position, room_id）返回
type RoomsRepository interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	UpsertRoom(ctx context.Context, room domain.Room) error
	DeleteRoom(ctx context.Context, roomID string) error
}
