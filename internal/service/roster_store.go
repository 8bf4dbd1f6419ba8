package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"examseat/internal/domain"
	"examseat/internal/metrics"
	"examseat/internal/notify"
	"examseat/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 名单操作名（metrics label / 日志）
const (
	OpCreate  = "create_or_replace"
	OpRemove  = "remove_occupant"
	OpReplace = "replace_occupants"
	OpDrop    = "drop"
)

// CacheInvalidator 名单变更后清理派生缓存
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RosterStore 按科目管理分配数据集：创建/覆盖、读取、单条记录修改、删除
// 所有不变量（名称规范化、人数=列表长度、容量上限）在这里校验，持久化协作者只负责存取
// 并发修改同一记录时后写者生效（读-改-写之间不加锁）
type RosterStore struct {
	repo        repository.AllocationsRepository
	logger      *zap.Logger
	metrics     metrics.Collector
	publisher   notify.Publisher
	invalidator CacheInvalidator
	now         func() time.Time
	newRunID    func() string
}

// RosterOption 可选依赖
type RosterOption func(*RosterStore)

func WithMetrics(m metrics.Collector) RosterOption {
	return func(s *RosterStore) { s.metrics = m }
}

func WithPublisher(p notify.Publisher) RosterOption {
	return func(s *RosterStore) { s.publisher = p }
}

func WithCacheInvalidator(c CacheInvalidator) RosterOption {
	return func(s *RosterStore) { s.invalidator = c }
}

// WithClock 测试用
func WithClock(now func() time.Time) RosterOption {
	return func(s *RosterStore) { s.now = now }
}

// NewRosterStore 创建 RosterStore
func NewRosterStore(repo repository.AllocationsRepository, logger *zap.Logger, opts ...RosterOption) *RosterStore {
	s := &RosterStore{
		repo:      repo,
		logger:    logger,
		metrics:   metrics.NewNop(),
		publisher: notify.Nop{},
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrReplace 销毁同名数据集后整体写入新数据集（不合并、不保留版本）
// 持久化层支持事务时三步在同一事务内完成；否则失败后数据集状态未定义，需要重新分配
func (s *RosterStore) CreateOrReplace(ctx context.Context, subject string, records []domain.AssignmentRecord) (*domain.SubjectDataset, error) {
	return s.createOrReplace(ctx, subject, records, 0)
}

// createOrReplace unseated 为本次分配未入座人数，写入 allocated 事件
func (s *RosterStore) createOrReplace(ctx context.Context, subject string, records []domain.AssignmentRecord, unseated int) (ds *domain.SubjectDataset, err error) {
	defer func() { s.observe(OpCreate, err) }()

	name, err := domain.CanonicalName(subject)
	if err != nil {
		return nil, err
	}
	subject = strings.TrimSpace(subject)
	if len(records) == 0 {
		return nil, domain.NewError(domain.ErrNoRoomsAvailable, "allocation produced no records").WithDataset(name)
	}

	prepared := make([]domain.AssignmentRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		rec = rec.Clone()
		rec.Recount()
		rec.Subject = subject
		rec.Position = i
		if rec.RoomID == "" {
			return nil, domain.NewError(domain.ErrValidation, fmt.Sprintf("record %d has no room id", i)).WithDataset(name)
		}
		if _, dup := seen[rec.RoomID]; dup {
			return nil, domain.NewError(domain.ErrValidation, "duplicate room in allocation").
				WithDataset(name).WithRoom(rec.RoomID)
		}
		seen[rec.RoomID] = struct{}{}
		if rec.OccupantCount > rec.Capacity {
			return nil, domain.NewError(domain.ErrValidation,
				fmt.Sprintf("%d occupants exceed capacity %d", rec.OccupantCount, rec.Capacity)).
				WithDataset(name).WithRoom(rec.RoomID)
		}
		prepared = append(prepared, rec)
	}

	header := repository.DatasetHeader{
		Name:      name,
		Subject:   subject,
		RunID:     s.newRunID(),
		CreatedAt: s.now().UTC(),
	}

	write := func(repo repository.AllocationsRepository) error {
		if err := repo.DestroyDataset(ctx, name); err != nil {
			return err
		}
		if err := repo.CreateDataset(ctx, header); err != nil {
			return err
		}
		return repo.BulkInsert(ctx, name, prepared)
	}

	if tx, ok := s.repo.(repository.Transactor); ok {
		err = tx.WithinTx(ctx, write)
		if err != nil {
			return nil, domain.NewError(domain.ErrPersistence, "failed to replace dataset").WithDataset(name).Wrap(err)
		}
	} else if err = write(s.repo); err != nil {
		s.logger.Error("Dataset left in undefined state",
			zap.String("dataset", name), zap.Error(err))
		return nil, domain.NewError(domain.ErrPersistence, "failed to replace dataset, re-create it").
			WithDataset(name).Wrap(err)
	}

	ds = &domain.SubjectDataset{
		Name:      name,
		Subject:   subject,
		RunID:     header.RunID,
		CreatedAt: header.CreatedAt,
		Records:   prepared,
	}
	s.logger.Info("Dataset replaced",
		zap.String("dataset", name),
		zap.String("run_id", header.RunID),
		zap.Int("records", len(prepared)),
		zap.Int("occupants", ds.TotalOccupants()),
	)
	s.afterMutation(ctx, notify.Event{
		Type:     notify.EventAllocated,
		Dataset:  name,
		Subject:  subject,
		RunID:    header.RunID,
		Seated:   ds.TotalOccupants(),
		Unseated: unseated,
	})
	return ds, nil
}

// Fetch 返回某考场的考生列表
func (s *RosterStore) Fetch(ctx context.Context, subject, roomID string) ([]string, error) {
	rec, err := s.FetchRecord(ctx, subject, roomID)
	if err != nil {
		return nil, err
	}
	return rec.Occupants, nil
}

// FetchRecord 返回完整记录（含人数和容量快照）
func (s *RosterStore) FetchRecord(ctx context.Context, subject, roomID string) (*domain.AssignmentRecord, error) {
	name, err := domain.CanonicalName(subject)
	if err != nil {
		return nil, err
	}
	return s.loadRecord(ctx, name, roomID)
}

// FetchDataset 返回整个数据集
func (s *RosterStore) FetchDataset(ctx context.Context, subject string) (*domain.SubjectDataset, error) {
	name, err := domain.CanonicalName(subject)
	if err != nil {
		return nil, err
	}
	return s.loadDataset(ctx, name)
}

// ListDatasets 返回所有数据集（按名称排序）；读取过程中被删除的数据集以及名称不合规的数据集跳过
func (s *RosterStore) ListDatasets(ctx context.Context) ([]domain.SubjectDataset, error) {
	names, err := s.repo.ListDatasetNames(ctx)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistence, "failed to list datasets").Wrap(err)
	}
	out := make([]domain.SubjectDataset, 0, len(names))
	for _, name := range names {
		if !domain.IsCanonicalName(name) {
			s.logger.Warn("Skipping dataset with non-canonical name", zap.String("dataset", name))
			continue
		}
		ds, err := s.loadDataset(ctx, name)
		if err != nil {
			if errors.Is(err, domain.ErrDatasetNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *ds)
	}
	return out, nil
}

// LoadAll 以规范名为键返回所有数据集，供 AggregateAll 使用
func (s *RosterStore) LoadAll(ctx context.Context) (map[string]domain.SubjectDataset, error) {
	list, err := s.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.SubjectDataset, len(list))
	for _, ds := range list {
		out[ds.Name] = ds
	}
	return out, nil
}

// RemoveOccupant 删除一个考生并重新计数
// 写回前对现有列表做规范化（去空白、去空项、去重），顺带修复历史脏数据
func (s *RosterStore) RemoveOccupant(ctx context.Context, subject, roomID, identifier string) (rec *domain.AssignmentRecord, err error) {
	defer func() { s.observe(OpRemove, err) }()

	name, err := domain.CanonicalName(subject)
	if err != nil {
		return nil, err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domain.NewError(domain.ErrValidation, "identifier is required").WithDataset(name).WithRoom(roomID)
	}

	rec, err = s.loadRecord(ctx, name, roomID)
	if err != nil {
		return nil, err
	}
	remaining, found := domain.RemoveOccupant(domain.NormalizeOccupants(rec.Occupants), identifier)
	if !found {
		return nil, domain.NewError(domain.ErrOccupantNotFound, "identifier is not seated in this room").
			WithDataset(name).WithRoom(roomID).WithIdentifier(identifier)
	}

	rec.Occupants = remaining
	rec.Recount()
	if err := s.writeRecord(ctx, name, rec); err != nil {
		return nil, err
	}

	s.afterMutation(ctx, notify.Event{
		Type:          notify.EventOccupantRemoved,
		Dataset:       name,
		Subject:       rec.Subject,
		RoomID:        roomID,
		Identifier:    identifier,
		OccupantCount: rec.OccupantCount,
	})
	return rec, nil
}

// ReplaceOccupants 整体覆盖一条记录的考生列表并重新计数
// 不去重（调用方列表原样保存），但人数不能超过该考场分配时的容量
func (s *RosterStore) ReplaceOccupants(ctx context.Context, subject, roomID string, identifiers []string) (rec *domain.AssignmentRecord, err error) {
	defer func() { s.observe(OpReplace, err) }()

	name, err := domain.CanonicalName(subject)
	if err != nil {
		return nil, err
	}
	rec, err = s.loadRecord(ctx, name, roomID)
	if err != nil {
		return nil, err
	}
	if len(identifiers) > rec.Capacity {
		return nil, domain.NewError(domain.ErrValidation,
			fmt.Sprintf("%d occupants exceed capacity %d", len(identifiers), rec.Capacity)).
			WithDataset(name).WithRoom(roomID)
	}

	rec.Occupants = append([]string{}, identifiers...)
	rec.Recount()
	if err := s.writeRecord(ctx, name, rec); err != nil {
		return nil, err
	}

	s.afterMutation(ctx, notify.Event{
		Type:          notify.EventOccupantsReplaced,
		Dataset:       name,
		Subject:       rec.Subject,
		RoomID:        roomID,
		OccupantCount: rec.OccupantCount,
	})
	return rec, nil
}

// Drop 删除数据集；不存在时同样成功
func (s *RosterStore) Drop(ctx context.Context, subject string) (err error) {
	defer func() { s.observe(OpDrop, err) }()

	name, err := domain.CanonicalName(subject)
	if err != nil {
		return err
	}
	existed, err := s.repo.DatasetExists(ctx, name)
	if err != nil {
		return domain.NewError(domain.ErrPersistence, "failed to check dataset").WithDataset(name).Wrap(err)
	}
	if err := s.repo.DestroyDataset(ctx, name); err != nil {
		return domain.NewError(domain.ErrPersistence, "failed to drop dataset").WithDataset(name).Wrap(err)
	}
	if !existed {
		s.logger.Debug("Drop on absent dataset", zap.String("dataset", name))
		return nil
	}

	s.logger.Info("Dataset dropped", zap.String("dataset", name))
	s.afterMutation(ctx, notify.Event{Type: notify.EventDropped, Dataset: name, Subject: strings.TrimSpace(subject)})
	return nil
}

func (s *RosterStore) loadRecord(ctx context.Context, name, roomID string) (*domain.AssignmentRecord, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, domain.NewError(domain.ErrValidation, "room id is required").WithDataset(name)
	}
	rec, err := s.repo.SelectOne(ctx, name, roomID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.NewError(domain.ErrPersistence, "failed to read record").
			WithDataset(name).WithRoom(roomID).Wrap(err)
	}
	return nil, s.missingRecord(ctx, name, roomID)
}

// missingRecord 区分数据集不存在与记录不存在
func (s *RosterStore) missingRecord(ctx context.Context, name, roomID string) error {
	exists, err := s.repo.DatasetExists(ctx, name)
	if err != nil {
		return domain.NewError(domain.ErrPersistence, "failed to check dataset").WithDataset(name).Wrap(err)
	}
	if !exists {
		return domain.NewError(domain.ErrDatasetNotFound, "no allocation for subject").WithDataset(name)
	}
	return domain.NewError(domain.ErrRecordNotFound, "room is not part of this allocation").
		WithDataset(name).WithRoom(roomID)
}

func (s *RosterStore) loadDataset(ctx context.Context, name string) (*domain.SubjectDataset, error) {
	header, err := s.repo.GetDataset(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewError(domain.ErrDatasetNotFound, "no allocation for subject").WithDataset(name)
		}
		return nil, domain.NewError(domain.ErrPersistence, "failed to read dataset").WithDataset(name).Wrap(err)
	}
	records, err := s.repo.SelectAll(ctx, name)
	if err != nil {
		return nil, domain.NewError(domain.ErrPersistence, "failed to read records").WithDataset(name).Wrap(err)
	}
	return &domain.SubjectDataset{
		Name:      header.Name,
		Subject:   header.Subject,
		RunID:     header.RunID,
		CreatedAt: header.CreatedAt,
		Records:   records,
	}, nil
}

// writeRecord 一次写入 occupants 与 occupant_count
func (s *RosterStore) writeRecord(ctx context.Context, name string, rec *domain.AssignmentRecord) error {
	err := s.repo.UpdateOne(ctx, name, rec.RoomID, rec.Occupants, rec.OccupantCount)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		// 读写之间数据集被删除或替换
		return s.missingRecord(ctx, name, rec.RoomID)
	}
	return domain.NewError(domain.ErrPersistence, "failed to write record").
		WithDataset(name).WithRoom(rec.RoomID).Wrap(err)
}

func (s *RosterStore) afterMutation(ctx context.Context, ev notify.Event) {
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to invalidate results cache", zap.String("dataset", ev.Dataset), zap.Error(err))
		}
	}
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("Failed to publish roster event",
			zap.String("type", string(ev.Type)), zap.String("dataset", ev.Dataset), zap.Error(err))
	}
}

func (s *RosterStore) observe(op string, err error) {
	s.metrics.RecordMutation(op, outcome(err))
}

// outcome 成功为 "success"，失败为错误类型名
func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	return domain.KindName(domain.KindOf(err))
}
