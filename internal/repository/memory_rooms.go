package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"examseat/internal/domain"
)

// MemoryRoomsRepo: DB 未就绪时使用的考场目录
type MemoryRoomsRepo struct {
	mu    sync.RWMutex
	rooms map[string]domain.Room
}

func NewMemoryRoomsRepo(seed ...domain.Room) *MemoryRoomsRepo {
	r := &MemoryRoomsRepo{rooms: map[string]domain.Room{}}
	for _, room := range seed {
		r.rooms[room.RoomID] = room
	}
	return r
}

var _ RoomsRepository = (*MemoryRoomsRepo)(nil)

func (r *MemoryRoomsRepo) ListRooms(_ context.Context) ([]domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].RoomID < out[j].RoomID
	})
	return out, nil
}

func (r *MemoryRoomsRepo) GetRoom(_ context.Context, roomID string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	return &room, nil
}

func (r *MemoryRoomsRepo) UpsertRoom(_ context.Context, room domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.RoomID] = room
	return nil
}

func (r *MemoryRoomsRepo) DeleteRoom(_ context.Context, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; !ok {
		return fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	delete(r.rooms, roomID)
	return nil
}
