package cache

import (
	"hash/fnv"
	"sync"

	"github.com/any-hub/user-cache/internal/user"
)

// shard 持有一部分键空间，读写都经过同一把 RWMutex，值按副本存取。
type shard struct {
	mu    sync.RWMutex
	users map[string]user.User
}

func newShard() *shard {
	return &shard{users: make(map[string]user.User)}
}

func (s *shard) get(id string) (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// putIfAbsent 仅在键不存在时写入，返回当前驻留的值以及本次是否写入。
// 并发回源时第一次写入生效，后来者拿到的都是同一份驻留值。
func (s *shard) putIfAbsent(u user.User) (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		return existing, false
	}
	s.users[u.ID] = u
	return u, true
}

func (s *shard) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// shardCount 将 n 向上取整为 2 的幂，便于用掩码选择分片。
func shardCount(n int) int {
	if n <= 1 {
		return 1
	}
	count := 1
	for count < n {
		count <<= 1
	}
	return count
}

// hashKey 使用 FNV-1a，快速且分布足够均匀。
func hashKey(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}
