package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "usercache"

// Prometheus 将查询事件导出为 usercache_lookups_total{result=...}。
type Prometheus struct {
	hit      prometheus.Counter
	miss     prometheus.Counter
	load     prometheus.Counter
	notFound prometheus.Counter
	failure  prometheus.Counter
}

// NewPrometheus 在 reg 上注册查询计数器；重复注册会返回错误。
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lookups_total",
		Help:      "User lookups handled by the cache, partitioned by outcome.",
	}, []string{"result"})
	if err := reg.Register(lookups); err != nil {
		return nil, fmt.Errorf("register lookups counter: %w", err)
	}

	return &Prometheus{
		hit:      lookups.WithLabelValues("hit"),
		miss:     lookups.WithLabelValues("miss"),
		load:     lookups.WithLabelValues("load"),
		notFound: lookups.WithLabelValues("not_found"),
		failure:  lookups.WithLabelValues("failure"),
	}, nil
}

func (p *Prometheus) Hit()      { p.hit.Inc() }
func (p *Prometheus) Miss()     { p.miss.Inc() }
func (p *Prometheus) Load()     { p.load.Inc() }
func (p *Prometheus) NotFound() { p.notFound.Inc() }
func (p *Prometheus) Failure()  { p.failure.Inc() }

// RegisterEntries 导出当前缓存条目数，entries 在每次抓取时调用。
func RegisterEntries(reg prometheus.Registerer, entries func() int) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "entries",
		Help:      "Users currently resident in the cache.",
	}, func() float64 {
		return float64(entries())
	})
	if err := reg.Register(gauge); err != nil {
		return fmt.Errorf("register entries gauge: %w", err)
	}
	return nil
}
