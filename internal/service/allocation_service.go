package service

import (
	"context"
	"time"

	"examseat/internal/allocator"
	"examseat/internal/domain"
	"examseat/internal/metrics"
	"examseat/internal/repository"

	"go.uber.org/zap"
)

// AllocationService 上传名单 -> 读取考场目录 -> 分配 -> 覆盖写入数据集
type AllocationService struct {
	rooms   repository.RoomsRepository
	roster  *RosterStore
	metrics metrics.Collector
	logger  *zap.Logger
}

func NewAllocationService(rooms repository.RoomsRepository, roster *RosterStore, m metrics.Collector, logger *zap.Logger) *AllocationService {
	if m == nil {
		m = metrics.NewNop()
	}
	return &AllocationService{rooms: rooms, roster: roster, metrics: m, logger: logger}
}

// AllocateRequest 一次分配请求；Students 保持上传文件顺序
type AllocateRequest struct {
	Subject  string
	Students []domain.StudentRecord
}

// AllocateResult 分配结果
type AllocateResult struct {
	Dataset *domain.SubjectDataset `json:"dataset"`
	Summary allocator.Summary      `json:"summary"`
}

// Allocate 运行一次完整分配；超出总容量的考生不分配（不是错误，体现在 Summary.Unseated）
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest) (res *AllocateResult, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			s.metrics.RecordAllocation(outcome(err), 0, 0, 0)
			s.logger.Warn("Allocation failed", zap.String("subject", req.Subject), zap.Error(err))
		}
	}()

	if _, err := domain.CanonicalName(req.Subject); err != nil {
		return nil, err
	}

	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistence, "failed to load room catalog").Wrap(err)
	}

	records, err := allocator.Allocate(req.Students, rooms, req.Subject)
	if err != nil {
		return nil, err
	}

	unseated := allocator.Summarize(len(req.Students), records).Unseated
	ds, err := s.roster.createOrReplace(ctx, req.Subject, records, unseated)
	if err != nil {
		return nil, err
	}

	summary := allocator.Summarize(len(req.Students), ds.Records)
	if summary.Unseated > 0 {
		s.logger.Warn("Students left unseated: room capacity exhausted",
			zap.String("dataset", ds.Name),
			zap.Int("unseated", summary.Unseated),
			zap.Int("capacity", summary.Capacity),
		)
	}
	s.metrics.RecordAllocation(metrics.OutcomeSuccess, summary.Seated, summary.Unseated, time.Since(start).Seconds())
	s.logger.Info("Allocation completed",
		zap.String("dataset", ds.Name),
		zap.String("run_id", ds.RunID),
		zap.Int("students", summary.Students),
		zap.Int("seated", summary.Seated),
		zap.Int("rooms", summary.Rooms),
	)
	return &AllocateResult{Dataset: ds, Summary: summary}, nil
}
