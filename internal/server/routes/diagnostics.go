package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/any-hub/user-cache/internal/cache"
)

// StatsProvider 返回缓存当前的计数与容量信息。
type StatsProvider interface {
	Stats() cache.Stats
}

// RegisterDiagnosticsRoutes 暴露 /-/stats 与 /-/metrics 诊断接口，供 SRE 观察命中率与回源情况。
// gatherer 为 nil 时不注册 /-/metrics。
func RegisterDiagnosticsRoutes(app *fiber.App, stats StatsProvider, gatherer prometheus.Gatherer) {
	if app == nil {
		return
	}

	if stats != nil {
		app.Get("/-/stats", func(c fiber.Ctx) error {
			return c.JSON(stats.Stats())
		})
	}

	if gatherer != nil {
		handler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
		app.Get("/-/metrics", adaptor.HTTPHandler(handler))
	}
}
