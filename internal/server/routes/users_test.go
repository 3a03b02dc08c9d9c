package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/user-cache/internal/cache"
	"github.com/any-hub/user-cache/internal/server"
	"github.com/any-hub/user-cache/internal/source"
	"github.com/any-hub/user-cache/internal/user"
)

func TestUserRouteLoadsThenHits(t *testing.T) {
	var calls atomic.Int32
	src := source.Func(func(_ context.Context, id string) (user.User, error) {
		calls.Add(1)
		if id == "1" {
			return user.User{ID: "1", Age: 20}, nil
		}
		return user.User{}, source.ErrNotFound
	})
	app, _ := newUserTestApp(t, src)

	for i, wantHit := range []string{"false", "true"} {
		resp := doGet(t, app, "/users/1")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, resp.StatusCode)
		}
		if got := resp.Header.Get(HeaderCacheHit); got != wantHit {
			t.Fatalf("request %d: expected %s=%s, got %s", i, HeaderCacheHit, wantHit, got)
		}
		var payload user.User
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload != (user.User{ID: "1", Age: 20}) {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one backing call, got %d", calls.Load())
	}
}

func TestUserRouteNotFound(t *testing.T) {
	src := source.Func(func(context.Context, string) (user.User, error) {
		return user.User{}, source.ErrNotFound
	})
	app, repo := newUserTestApp(t, src)

	resp := doGet(t, app, "/users/2")
	assertErrorBody(t, resp, fiber.StatusNotFound, "user_not_found")
	if repo.Contains("2") {
		t.Fatalf("not-found users must not be cached")
	}
}

func TestUserRouteSourceUnavailable(t *testing.T) {
	src := source.Func(func(context.Context, string) (user.User, error) {
		return user.User{}, errors.New("upstream down")
	})
	app, _ := newUserTestApp(t, src)

	resp := doGet(t, app, "/users/3")
	assertErrorBody(t, resp, fiber.StatusBadGateway, "source_unavailable")
}

func TestUserRouteRejectsBlankID(t *testing.T) {
	src := source.Func(func(context.Context, string) (user.User, error) {
		t.Errorf("source must not be called for blank ids")
		return user.User{}, nil
	})
	app, _ := newUserTestApp(t, src)

	resp := doGet(t, app, "/users/%20")
	assertErrorBody(t, resp, fiber.StatusBadRequest, "user_id_required")
}

func TestUserRouteKeepsKeysAcrossRequests(t *testing.T) {
	app, repo := newUserTestApp(t, source.Fixed{Template: user.User{Age: 20}})

	ids := []string{"aaaa", "bbbb", "cccc", "dddd"}
	for _, id := range ids {
		resp := doGet(t, app, "/users/"+id)
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("GET /users/%s: expected 200, got %d", id, resp.StatusCode)
		}
	}

	for _, id := range ids {
		if !repo.Contains(id) {
			t.Fatalf("key %q should stay resident after later requests", id)
		}
	}
	if repo.Len() != len(ids) {
		t.Fatalf("expected %d entries, got %d", len(ids), repo.Len())
	}

	for _, id := range ids {
		resp := doGet(t, app, "/users/"+id)
		if got := resp.Header.Get(HeaderCacheHit); got != "true" {
			t.Fatalf("second GET /users/%s should hit cache, got %s=%s", id, HeaderCacheHit, got)
		}
		var payload user.User
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if payload.ID != id {
			t.Fatalf("stored user id changed: want %q, got %q", id, payload.ID)
		}
	}
	if stats := repo.Stats(); stats.Loads != uint64(len(ids)) {
		t.Fatalf("expected %d loads, got %d", len(ids), stats.Loads)
	}
}

func newUserTestApp(t *testing.T, src source.Source) (*fiber.App, *cache.Repository) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo, err := cache.New(src, cache.WithLogger(logger))
	if err != nil {
		t.Fatalf("cache.New error: %v", err)
	}
	app, err := server.NewApp(server.AppOptions{Logger: logger, ListenPort: 5000})
	if err != nil {
		t.Fatalf("server.NewApp error: %v", err)
	}
	RegisterUserRoutes(app, repo, logger)
	return app, repo
}

func doGet(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	if err != nil {
		t.Fatalf("app.Test %s failed: %v", target, err)
	}
	return resp
}

func assertErrorBody(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("expected status %d, got %d", status, resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"`+code+`"`)) {
		t.Fatalf("expected %s error, got %s", code, string(body))
	}
}
