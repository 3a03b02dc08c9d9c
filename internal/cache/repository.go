package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/any-hub/user-cache/internal/metrics"
	"github.com/any-hub/user-cache/internal/source"
	"github.com/any-hub/user-cache/internal/user"
)

// defaultShards 与配置默认值保持一致。
const defaultShards = 16

// Repository 是带回源能力的用户缓存，整个进程共享一份实例。
type Repository struct {
	src    source.Source
	shards []*shard
	mask   uint32

	// group 为 nil 时允许同一键的并发回源，重复调用只浪费一次查询，不会破坏数据。
	group *singleflight.Group

	stats    metrics.Counters
	recorder metrics.Recorder
	logger   *logrus.Logger
}

// Option 调整 Repository 的构造参数。
type Option func(*Repository)

// WithShards 设置分片数量，会向上取整为 2 的幂。
func WithShards(n int) Option {
	return func(r *Repository) {
		r.shards = make([]*shard, shardCount(n))
	}
}

// WithSingleFlight 开启后同一键同一时刻只会有一次回源，其余调用方等待其结果。
func WithSingleFlight(enabled bool) Option {
	return func(r *Repository) {
		if enabled {
			r.group = &singleflight.Group{}
		} else {
			r.group = nil
		}
	}
}

// WithRecorder 额外上报查询事件，例如 Prometheus 计数器。
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Repository) {
		if rec != nil {
			r.recorder = metrics.Multi{&r.stats, rec}
		}
	}
}

// WithLogger 注入结构化日志，未设置时丢弃日志。
func WithLogger(logger *logrus.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New 以空缓存构建 Repository，src 不能为空。
func New(src source.Source, opts ...Option) (*Repository, error) {
	if src == nil {
		return nil, errors.New("user source required")
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Repository{
		src:    src,
		shards: make([]*shard, defaultShards),
		logger: discard,
	}
	r.recorder = &r.stats
	for _, opt := range opts {
		opt(r)
	}

	for i := range r.shards {
		r.shards[i] = newShard()
	}
	r.mask = uint32(len(r.shards) - 1)
	return r, nil
}

// Search 先查缓存，未命中时回源并写入缓存，返回驻留值的副本。
// 数据源确认不存在时返回 ErrNotFound，回源故障时返回包装了 ErrSourceUnavailable 的错误，
// 两种情况都不会写入缓存。
func (r *Repository) Search(ctx context.Context, id string) (*Result, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidKey
	}
	// 键会长期驻留在分片中，不能引用调用方可能复用的内存。
	id = strings.Clone(id)

	sh := r.shardFor(id)
	if u, ok := sh.get(id); ok {
		r.recorder.Hit()
		return &Result{User: u, Origin: OriginCache}, nil
	}

	r.recorder.Miss()
	u, loaded, err := r.populate(ctx, sh, id)
	if err != nil {
		return nil, err
	}

	origin := OriginCache
	if loaded {
		origin = OriginSource
	}
	return &Result{User: u, Origin: origin}, nil
}

// populate 在开启 singleflight 时合并同一键的并发回源。
// 共享的回源不随任何一个调用方取消，每个调用方只按自己的 ctx 放弃等待。
func (r *Repository) populate(ctx context.Context, sh *shard, id string) (user.User, bool, error) {
	if r.group == nil {
		return r.load(ctx, sh, id)
	}

	ch := r.group.DoChan(id, func() (interface{}, error) {
		u, loaded, err := r.load(context.WithoutCancel(ctx), sh, id)
		return loadResult{user: u, loaded: loaded}, err
	})

	select {
	case <-ctx.Done():
		r.recorder.Failure()
		return user.User{}, false, fmt.Errorf("%w: %w", ErrSourceUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return user.User{}, false, res.Err
		}
		if res.Shared {
			r.logger.WithFields(logrus.Fields{
				"action":  "cache_populate",
				"user_id": id,
			}).Debug("singleflight_shared")
		}
		lr := res.Val.(loadResult)
		return lr.user, lr.loaded, nil
	}
}

type loadResult struct {
	user   user.User
	loaded bool
}

// load 是唯一的写入路径：回源、校验、写入，再返回驻留值。
func (r *Repository) load(ctx context.Context, sh *shard, id string) (user.User, bool, error) {
	// 等待期间其它调用方可能已经写入。
	if u, ok := sh.get(id); ok {
		return u, false, nil
	}

	fresh, err := r.src.Search(ctx, id)
	switch {
	case errors.Is(err, source.ErrNotFound):
		r.recorder.NotFound()
		return user.User{}, false, ErrNotFound
	case err != nil:
		r.recorder.Failure()
		r.logger.WithError(err).WithFields(logrus.Fields{
			"action":  "cache_populate",
			"user_id": id,
		}).Warn("source_search_failed")
		return user.User{}, false, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	if fresh.ID == "" {
		fresh.ID = id
	}
	if fresh.ID != id {
		r.recorder.Failure()
		return user.User{}, false, fmt.Errorf("%w: source returned user %q for key %q", ErrSourceUnavailable, fresh.ID, id)
	}

	stored, inserted := sh.putIfAbsent(fresh)
	if inserted {
		r.recorder.Load()
		r.logger.WithFields(logrus.Fields{
			"action":  "cache_populate",
			"user_id": id,
		}).Debug("cache_stored")
	}
	return stored, true, nil
}

// Contains 报告键是否已驻留，不会触发回源。
func (r *Repository) Contains(id string) bool {
	_, ok := r.shardFor(id).get(id)
	return ok
}

// Len 返回所有分片的条目总数。
func (r *Repository) Len() int {
	total := 0
	for _, sh := range r.shards {
		total += sh.len()
	}
	return total
}

// Stats 返回计数快照与容量信息。
func (r *Repository) Stats() Stats {
	return Stats{
		Snapshot:     r.stats.Snapshot(),
		Entries:      r.Len(),
		Shards:       len(r.shards),
		SingleFlight: r.group != nil,
	}
}

func (r *Repository) shardFor(id string) *shard {
	return r.shards[hashKey(id)&r.mask]
}
