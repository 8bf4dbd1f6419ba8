package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"examseat/internal/domain"
)

type memDataset struct {
	header  DatasetHeader
	records []domain.AssignmentRecord
}

// MemoryAllocationsRepo: DB 未就绪时的分配结果存储
// - 读写均复制记录，调用方修改返回值不影响存储
// - WithinTx 在副本上执行，成功后整体替换
type MemoryAllocationsRepo struct {
	mu       sync.RWMutex
	datasets map[string]*memDataset
}

func NewMemoryAllocationsRepo() *MemoryAllocationsRepo {
	return &MemoryAllocationsRepo{datasets: map[string]*memDataset{}}
}

var (
	_ AllocationsRepository = (*MemoryAllocationsRepo)(nil)
	_ Transactor            = (*MemoryAllocationsRepo)(nil)
)

func (r *MemoryAllocationsRepo) WithinTx(_ context.Context, fn func(repo AllocationsRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staging := &MemoryAllocationsRepo{datasets: make(map[string]*memDataset, len(r.datasets))}
	for name, ds := range r.datasets {
		staging.datasets[name] = ds.clone()
	}
	if err := fn(staging); err != nil {
		return err
	}
	r.datasets = staging.datasets
	return nil
}

func (r *MemoryAllocationsRepo) ListDatasetNames(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.datasets))
	for name := range r.datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *MemoryAllocationsRepo) DatasetExists(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.datasets[name]
	return ok, nil
}

func (r *MemoryAllocationsRepo) GetDataset(_ context.Context, name string) (*DatasetHeader, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ds, ok := r.datasets[name]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", name, ErrNotFound)
	}
	h := ds.header
	return &h, nil
}

func (r *MemoryAllocationsRepo) DestroyDataset(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.datasets, name)
	return nil
}

func (r *MemoryAllocationsRepo) CreateDataset(_ context.Context, h DatasetHeader) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.datasets[h.Name]; ok {
		return fmt.Errorf("failed to create dataset: %s already exists", h.Name)
	}
	r.datasets[h.Name] = &memDataset{header: h, records: []domain.AssignmentRecord{}}
	return nil
}

func (r *MemoryAllocationsRepo) BulkInsert(_ context.Context, name string, records []domain.AssignmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.datasets[name]
	if !ok {
		return fmt.Errorf("dataset %s: %w", name, ErrNotFound)
	}
	for _, rec := range records {
		for _, existing := range ds.records {
			if existing.RoomID == rec.RoomID {
				return fmt.Errorf("failed to insert allocation record %s: duplicate room", rec.RoomID)
			}
		}
		c := rec.Clone()
		c.Position = len(ds.records)
		ds.records = append(ds.records, c)
	}
	return nil
}

func (r *MemoryAllocationsRepo) SelectAll(_ context.Context, name string) ([]domain.AssignmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ds, ok := r.datasets[name]
	if !ok {
		return []domain.AssignmentRecord{}, nil
	}
	out := make([]domain.AssignmentRecord, 0, len(ds.records))
	for _, rec := range ds.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (r *MemoryAllocationsRepo) SelectOne(_ context.Context, name, roomID string) (*domain.AssignmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ds, ok := r.datasets[name]; ok {
		for _, rec := range ds.records {
			if rec.RoomID == roomID {
				c := rec.Clone()
				return &c, nil
			}
		}
	}
	return nil, fmt.Errorf("allocation record %s/%s: %w", name, roomID, ErrNotFound)
}

func (r *MemoryAllocationsRepo) UpdateOne(_ context.Context, name, roomID string, occupants []string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ds, ok := r.datasets[name]; ok {
		for i := range ds.records {
			if ds.records[i].RoomID == roomID {
				ds.records[i].Occupants = append([]string{}, occupants...)
				ds.records[i].OccupantCount = count
				return nil
			}
		}
	}
	return fmt.Errorf("allocation record %s/%s: %w", name, roomID, ErrNotFound)
}

func (d *memDataset) clone() *memDataset {
	out := &memDataset{header: d.header, records: make([]domain.AssignmentRecord, 0, len(d.records))}
	for _, rec := range d.records {
		out.records = append(out.records, rec.Clone())
	}
	return out
}
