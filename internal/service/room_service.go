package service

import (
	"context"
	"errors"
	"strings"

	"examseat/internal/domain"
	"examseat/internal/repository"

	"go.uber.org/zap"
)

// RoomService 考场目录维护；已生成的数据集不受影响（记录保存容量快照）
type RoomService struct {
	repo   repository.RoomsRepository
	logger *zap.Logger
}

func NewRoomService(repo repository.RoomsRepository, logger *zap.Logger) *RoomService {
	return &RoomService{repo: repo, logger: logger}
}

// ListRooms 按目录顺序返回
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistence, "failed to list rooms").Wrap(err)
	}
	return rooms, nil
}

// UpsertRoom 新建或更新考场；新考场未指定顺序时排在末尾
func (s *RoomService) UpsertRoom(ctx context.Context, room domain.Room) (*domain.Room, error) {
	room.RoomID = strings.TrimSpace(room.RoomID)
	if room.RoomID == "" {
		return nil, domain.NewError(domain.ErrValidation, "room_id is required")
	}
	if room.Capacity < 0 {
		return nil, domain.NewError(domain.ErrValidation, "capacity must be >= 0").WithRoom(room.RoomID)
	}

	if room.Position == 0 {
		existing, err := s.repo.GetRoom(ctx, room.RoomID)
		switch {
		case err == nil:
			room.Position = existing.Position
		case errors.Is(err, repository.ErrNotFound):
			rooms, err := s.repo.ListRooms(ctx)
			if err != nil {
				return nil, domain.NewError(domain.ErrPersistence, "failed to list rooms").Wrap(err)
			}
			for _, r := range rooms {
				if r.Position >= room.Position {
					room.Position = r.Position + 1
				}
			}
		default:
			return nil, domain.NewError(domain.ErrPersistence, "failed to read room").WithRoom(room.RoomID).Wrap(err)
		}
	}

	if err := s.repo.UpsertRoom(ctx, room); err != nil {
		return nil, domain.NewError(domain.ErrPersistence, "failed to save room").WithRoom(room.RoomID).Wrap(err)
	}
	s.logger.Info("Room saved",
		zap.String("room_id", room.RoomID),
		zap.Int("capacity", room.Capacity),
		zap.Int("position", room.Position),
	)
	return &room, nil
}

// DeleteRoom 删除考场
func (s *RoomService) DeleteRoom(ctx context.Context, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return domain.NewError(domain.ErrValidation, "room_id is required")
	}
	if err := s.repo.DeleteRoom(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewError(domain.ErrRecordNotFound, "room not found").WithRoom(roomID)
		}
		return domain.NewError(domain.ErrPersistence, "failed to delete room").WithRoom(roomID).Wrap(err)
	}
	s.logger.Info("Room deleted", zap.String("room_id", roomID))
	return nil
}

// SeedRooms 目录为空时写入初始考场；已有考场时不做任何修改
func (s *RoomService) SeedRooms(ctx context.Context, rooms []domain.Room) (int, error) {
	existing, err := s.ListRooms(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 || len(rooms) == 0 {
		return 0, nil
	}
	for _, room := range rooms {
		if _, err := s.UpsertRoom(ctx, room); err != nil {
			return 0, err
		}
	}
	s.logger.Info("Room catalog seeded", zap.Int("rooms", len(rooms)))
	return len(rooms), nil
}
