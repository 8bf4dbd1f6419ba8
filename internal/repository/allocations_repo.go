package repository

import (
	"context"
	"time"

	"examseat/internal/domain"
)

// DatasetHeader 数据集元信息（不含记录）
type DatasetHeader struct {
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

// AllocationsRepository 分配结果的持久化协作者
// 固定表结构，以 (dataset_name, room_id) 为键；不做任何不变量校验，由 RosterStore 负责
type AllocationsRepository interface {
	ListDatasetNames(ctx context.Context) ([]string, error)
	DatasetExists(ctx context.Context, name string) (bool, error)
	GetDataset(ctx context.Context, name string) (*DatasetHeader, error)
	// DestroyDataset 删除数据集及其全部记录；不存在时不报错
	DestroyDataset(ctx context.Context, name string) error
	CreateDataset(ctx context.Context, header DatasetHeader) error
	BulkInsert(ctx context.Context, name string, records []domain.AssignmentRecord) error
	// SelectAll 按 position 顺序返回
	SelectAll(ctx context.Context, name string) ([]domain.AssignmentRecord, error)
	SelectOne(ctx context.Context, name, roomID string) (*domain.AssignmentRecord, error)
	// UpdateOne 一次写入 occupants 与 occupant_count
	UpdateOne(ctx context.Context, name, roomID string, occupants []string, count int) error
}

// Transactor 在单个事务中执行 fn；fn 返回错误时回滚
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repo AllocationsRepository) error) error
}
