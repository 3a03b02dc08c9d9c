package metrics

import "sync/atomic"

// Recorder 接收缓存查询过程中的事件，实现必须可并发调用且不能阻塞。
type Recorder interface {
	// Hit 在缓存命中时调用。
	Hit()
	// Miss 在缓存未命中、即将回源时调用。
	Miss()
	// Load 在回源成功并写入缓存后调用。
	Load()
	// NotFound 在数据源确认用户不存在时调用。
	NotFound()
	// Failure 在数据源故障时调用。
	Failure()
}

// Snapshot 是某一时刻计数器的只读副本。
type Snapshot struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Loads    uint64 `json:"loads"`
	NotFound uint64 `json:"not_found"`
	Failures uint64 `json:"failures"`
}

// Counters 以原子计数实现 Recorder，零值可直接使用。
type Counters struct {
	hits     atomic.Uint64
	misses   atomic.Uint64
	loads    atomic.Uint64
	notFound atomic.Uint64
	failures atomic.Uint64
}

func (c *Counters) Hit()      { c.hits.Add(1) }
func (c *Counters) Miss()     { c.misses.Add(1) }
func (c *Counters) Load()     { c.loads.Add(1) }
func (c *Counters) NotFound() { c.notFound.Add(1) }
func (c *Counters) Failure()  { c.failures.Add(1) }

// Snapshot 读取当前计数。各字段独立读取，彼此之间不保证原子一致。
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Loads:    c.loads.Load(),
		NotFound: c.notFound.Load(),
		Failures: c.failures.Load(),
	}
}

// Multi 将事件依次转发给多个 Recorder。
type Multi []Recorder

func (m Multi) Hit() {
	for _, r := range m {
		r.Hit()
	}
}

func (m Multi) Miss() {
	for _, r := range m {
		r.Miss()
	}
}

func (m Multi) Load() {
	for _, r := range m {
		r.Load()
	}
}

func (m Multi) NotFound() {
	for _, r := range m {
		r.NotFound()
	}
}

func (m Multi) Failure() {
	for _, r := range m {
		r.Failure()
	}
}
