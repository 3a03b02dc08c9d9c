package routes

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/utils/v2"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/user-cache/internal/cache"
	"github.com/any-hub/user-cache/internal/logging"
	"github.com/any-hub/user-cache/internal/server"
)

// HeaderCacheHit 标记响应是否直接来自缓存。
const HeaderCacheHit = "X-User-Cache-Hit"

// UserLookup 是 /users/:id 依赖的最小接口，*cache.Repository 满足它。
type UserLookup interface {
	Search(ctx context.Context, id string) (*cache.Result, error)
}

// RegisterUserRoutes 暴露 GET /users/:id，未命中时由缓存负责回源。
func RegisterUserRoutes(app *fiber.App, lookup UserLookup, logger *logrus.Logger) {
	if app == nil || lookup == nil || logger == nil {
		return
	}

	app.Get("/users/:id", func(c fiber.Ctx) error {
		started := time.Now()
		// Params 指向会被复用的请求缓冲区，写入缓存前必须复制。
		id, err := url.PathUnescape(utils.CopyString(c.Params("id")))
		if err != nil || strings.TrimSpace(id) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id_required"})
		}

		res, err := lookup.Search(c.Context(), id)
		if err != nil {
			return renderLookupError(c, logger, id, err, started)
		}

		fields := logging.LookupFields(id, server.RequestID(c), res.Origin.String(), res.Hit())
		fields["latency_ms"] = time.Since(started).Milliseconds()
		logger.WithFields(fields).Info("user_lookup_completed")

		c.Set(HeaderCacheHit, strconv.FormatBool(res.Hit()))
		return c.JSON(res.User)
	})
}

func renderLookupError(c fiber.Ctx, logger *logrus.Logger, id string, err error, started time.Time) error {
	status := fiber.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, cache.ErrInvalidKey):
		status, code = fiber.StatusBadRequest, "user_id_required"
	case errors.Is(err, cache.ErrNotFound):
		status, code = fiber.StatusNotFound, "user_not_found"
	case errors.Is(err, cache.ErrSourceUnavailable):
		status, code = fiber.StatusBadGateway, "source_unavailable"
	}

	fields := logging.LookupFields(id, server.RequestID(c), "", false)
	fields["latency_ms"] = time.Since(started).Milliseconds()
	fields["status"] = status
	entry := logger.WithFields(fields)
	if status >= fiber.StatusInternalServerError {
		entry.WithError(err).Warn("user_lookup_failed")
	} else {
		entry.Info("user_lookup_rejected")
	}

	return c.Status(status).JSON(fiber.Map{"error": code})
}
