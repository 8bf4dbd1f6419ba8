package service

import (
	"context"
	"time"

	"examseat/internal/domain"
	"examseat/internal/metrics"
	"examseat/internal/store"

	"go.uber.org/zap"
)

// AggregateAll 合并所有数据集：canonicalName -> 有序记录
// 纯函数；键直接取 RosterStore 跟踪的名称，不从存储标识反向解析（科目本身可能包含分隔符）
func AggregateAll(datasets map[string]domain.SubjectDataset) map[string][]domain.AssignmentRecord {
	out := make(map[string][]domain.AssignmentRecord, len(datasets))
	for name, ds := range datasets {
		records := make([]domain.AssignmentRecord, 0, len(ds.Records))
		for _, rec := range ds.Records {
			records = append(records, rec.Clone())
		}
		out[name] = records
	}
	return out
}

// ResultsService 汇总结果查询，可选 Redis 缓存
type ResultsService struct {
	roster  *RosterStore
	cache   *store.ResultsCache
	metrics metrics.Collector
	logger  *zap.Logger
}

// NewResultsService cache 为 nil 时每次都从存储读取
func NewResultsService(roster *RosterStore, cache *store.ResultsCache, m metrics.Collector, logger *zap.Logger) *ResultsService {
	if m == nil {
		m = metrics.NewNop()
	}
	return &ResultsService{roster: roster, cache: cache, metrics: m, logger: logger}
}

// Results 返回所有科目的分配结果
// 先取缓存代号再读存储；读取期间发生的变更会递增代号，本次写回的旧快照不会被后续请求读到
func (s *ResultsService) Results(ctx context.Context) (map[string][]domain.AssignmentRecord, error) {
	var (
		gen       int64
		cacheable bool
	)
	if s.cache != nil {
		g, err := s.cache.Generation(ctx)
		if err != nil {
			s.metrics.RecordCacheLookup(false)
			s.logger.Warn("Results cache unavailable", zap.Error(err))
		} else {
			gen, cacheable = g, true
			cached, err := s.cache.Load(ctx, gen)
			if err == nil {
				s.metrics.RecordCacheLookup(true)
				return cached, nil
			}
			s.metrics.RecordCacheLookup(false)
			if !store.IsMiss(err) {
				s.logger.Warn("Results cache unavailable", zap.Error(err))
				cacheable = false
			}
		}
	}

	start := time.Now()
	datasets, err := s.roster.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	results := AggregateAll(datasets)
	s.logger.Debug("Aggregated results",
		zap.Int("datasets", len(results)),
		zap.Int64("generation", gen),
		zap.Duration("elapsed", time.Since(start)),
	)

	if cacheable {
		if err := s.cache.Store(ctx, gen, results); err != nil {
			s.logger.Warn("Failed to cache results", zap.Error(err))
		}
	}
	return results, nil
}
