package cache

import (
	"errors"

	"github.com/any-hub/user-cache/internal/metrics"
	"github.com/any-hub/user-cache/internal/source"
	"github.com/any-hub/user-cache/internal/user"
)

var (
	// ErrNotFound 与 source.ErrNotFound 相同，便于上层直接用 errors.Is 判断。
	ErrNotFound = source.ErrNotFound
	// ErrSourceUnavailable 表示回源失败，包装了数据源返回的原始错误。
	ErrSourceUnavailable = errors.New("user source unavailable")
	// ErrInvalidKey 表示查询键为空。
	ErrInvalidKey = errors.New("user id required")
)

// Origin 标记一次查询结果的来源。
type Origin int

const (
	// OriginCache 表示直接命中缓存。
	OriginCache Origin = iota
	// OriginSource 表示本次查询触发了回源并写入缓存。
	OriginSource
)

func (o Origin) String() string {
	switch o {
	case OriginCache:
		return "cache"
	case OriginSource:
		return "source"
	default:
		return "unknown"
	}
}

// Result 是 Search 的返回值。User 始终是缓存驻留值的副本，
// 调用方可以随意持有或修改，不会影响缓存内容。
type Result struct {
	User   user.User
	Origin Origin
}

// Hit 报告结果是否直接来自缓存。
func (r Result) Hit() bool {
	return r.Origin == OriginCache
}

// Stats 汇总仓库当前的计数与容量信息，供诊断接口输出。
type Stats struct {
	metrics.Snapshot
	Entries      int  `json:"entries"`
	Shards       int  `json:"shards"`
	SingleFlight bool `json:"single_flight"`
}
