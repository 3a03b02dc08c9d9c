package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/user-cache/internal/cache"
	"github.com/any-hub/user-cache/internal/metrics"
	"github.com/any-hub/user-cache/internal/server"
	"github.com/any-hub/user-cache/internal/source"
	"github.com/any-hub/user-cache/internal/user"
)

func TestDiagnosticsRoutes(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewPrometheus(reg)
	if err != nil {
		t.Fatalf("NewPrometheus error: %v", err)
	}

	src := source.Func(func(_ context.Context, id string) (user.User, error) {
		if id == "1" {
			return user.User{ID: "1", Age: 20}, nil
		}
		return user.User{}, source.ErrNotFound
	})
	repo, err := cache.New(src, cache.WithRecorder(recorder), cache.WithShards(4))
	if err != nil {
		t.Fatalf("cache.New error: %v", err)
	}
	if err := metrics.RegisterEntries(reg, repo.Len); err != nil {
		t.Fatalf("RegisterEntries error: %v", err)
	}

	app, err := server.NewApp(server.AppOptions{Logger: logger, ListenPort: 5000})
	if err != nil {
		t.Fatalf("server.NewApp error: %v", err)
	}
	RegisterUserRoutes(app, repo, logger)
	RegisterDiagnosticsRoutes(app, repo, reg)

	doGet(t, app, "/users/1")
	doGet(t, app, "/users/1")
	doGet(t, app, "/users/9")

	resp := doGet(t, app, "/-/stats")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 from /-/stats, got %d", resp.StatusCode)
	}
	var stats cache.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Hits != 1 || stats.Misses != 2 || stats.Loads != 1 || stats.NotFound != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
	if stats.Entries != 1 || stats.Shards != 4 {
		t.Fatalf("unexpected shape: %+v", stats)
	}

	resp = doGet(t, app, "/-/metrics")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 from /-/metrics, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`usercache_lookups_total{result="hit"} 1`,
		`usercache_lookups_total{result="not_found"} 1`,
		`usercache_entries 1`,
	} {
		if !bytes.Contains(body, []byte(want)) {
			t.Fatalf("metrics output missing %q:\n%s", want, string(body))
		}
	}
}

func TestDiagnosticsSkipsMetricsWithoutGatherer(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app, err := server.NewApp(server.AppOptions{Logger: logger, ListenPort: 5000})
	if err != nil {
		t.Fatalf("server.NewApp error: %v", err)
	}
	RegisterDiagnosticsRoutes(app, nil, nil)

	resp := doGet(t, app, "/-/metrics")
	assertErrorBody(t, resp, fiber.StatusNotFound, "route_not_found")
}
