package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"examseat/internal/domain"
)

// DefaultResultsKey 汇总结果缓存键前缀
const DefaultResultsKey = "examseat:results"

// ResultsCache 缓存 ResultAggregator 的输出（JSON）
// 缓存按代（generation）存放：<key>:<gen>，代号保存在 <key>:gen
// Invalidate 递增代号，读取前取到的代号若已过期，写回的内容不会再被读到
type ResultsCache struct {
	kv  KV
	key string
	ttl time.Duration
}

func NewResultsCache(kv KV, key string, ttl time.Duration) *ResultsCache {
	if key == "" {
		key = DefaultResultsKey
	}
	return &ResultsCache{kv: kv, key: key, ttl: ttl}
}

func (c *ResultsCache) genKey() string { return c.key + ":gen" }

// BlobKey 某一代结果的缓存键
func (c *ResultsCache) BlobKey(gen int64) string { return c.key + ":" + strconv.FormatInt(gen, 10) }

// Generation 当前代号；从未失效过时为 0
func (c *ResultsCache) Generation(ctx context.Context) (int64, error) {
	raw, err := c.kv.Get(ctx, c.genKey())
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return 0, nil
		}
		return 0, err
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid results generation %q: %w", raw, err)
	}
	return gen, nil
}

// Load 未命中时返回 ErrMiss
func (c *ResultsCache) Load(ctx context.Context, gen int64) (map[string][]domain.AssignmentRecord, error) {
	raw, err := c.kv.Get(ctx, c.BlobKey(gen))
	if err != nil {
		return nil, err
	}
	var out map[string][]domain.AssignmentRecord
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		// 损坏的缓存按未命中处理
		return nil, fmt.Errorf("%w: %v", ErrMiss, err)
	}
	if out == nil {
		out = map[string][]domain.AssignmentRecord{}
	}
	return out, nil
}

// Store 以读取数据前取得的代号写入
func (c *ResultsCache) Store(ctx context.Context, gen int64, results map[string][]domain.AssignmentRecord) error {
	b, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return c.kv.Set(ctx, c.BlobKey(gen), string(b), c.ttl)
}

// Invalidate 递增代号并删除上一代的结果
func (c *ResultsCache) Invalidate(ctx context.Context) error {
	gen, err := c.kv.Incr(ctx, c.genKey())
	if err != nil {
		return err
	}
	return c.kv.Del(ctx, c.BlobKey(gen-1))
}

// IsMiss reports whether err is a cache miss (including a corrupt entry).
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}
