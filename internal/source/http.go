package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/any-hub/user-cache/internal/user"
)

// maxBodyBytes 限制上游响应体大小，单个用户记录远小于该值。
const maxBodyBytes = 1 << 20

// StatusError 表示上游返回了非预期的 HTTP 状态码。
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.Code)
}

// Temporary 报告该状态是否值得重试（5xx 与 429）。
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// HTTPOptions 控制回源鉴权与重试行为。
type HTTPOptions struct {
	Username       string
	Password       string
	MaxRetries     int
	InitialBackoff time.Duration
}

// HTTP 通过 GET <upstream>/users/<id> 查询远端用户服务。
// 200 解码为 User，404 映射为 ErrNotFound，其余状态与传输错误均视为故障。
type HTTP struct {
	client *http.Client
	base   string
	opts   HTTPOptions

	// wait 在两次重试之间阻塞，测试中替换为立即返回。
	wait func(ctx context.Context, d time.Duration) error
}

// NewHTTP 构造 HTTP 数据源，upstream 必须是 http/https 绝对地址。
func NewHTTP(client *http.Client, upstream string, opts HTTPOptions) (*HTTP, error) {
	if client == nil {
		return nil, errors.New("http client required")
	}
	parsed, err := url.Parse(strings.TrimSpace(upstream))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid upstream: %s", upstream)
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	return &HTTP{
		client: client,
		base:   strings.TrimRight(parsed.String(), "/"),
		opts:   opts,
		wait:   sleepContext,
	}, nil
}

func (h *HTTP) Search(ctx context.Context, id string) (user.User, error) {
	backoff := h.opts.InitialBackoff
	var lastErr error
	for attempt := 0; attempt <= h.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := h.wait(ctx, backoff); err != nil {
				return user.User{}, err
			}
			backoff *= 2
		}

		u, err := h.fetch(ctx, id)
		if err == nil || !retryable(ctx, err) {
			return u, err
		}
		lastErr = err
	}
	return user.User{}, fmt.Errorf("upstream failed after %d attempts: %w", h.opts.MaxRetries+1, lastErr)
}

func (h *HTTP) fetch(ctx context.Context, id string) (user.User, error) {
	endpoint := h.base + "/users/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return user.User{}, err
	}
	req.Header.Set("Accept", "application/json")
	if h.opts.Username != "" && h.opts.Password != "" {
		req.SetBasicAuth(h.opts.Username, h.opts.Password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return user.User{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return user.User{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return user.User{}, &StatusError{Code: resp.StatusCode, URL: endpoint}
	}

	var u user.User
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&u); err != nil {
		return user.User{}, fmt.Errorf("decode upstream user: %w", err)
	}
	if u.ID == "" {
		u.ID = id
	}
	if u.ID != id {
		return user.User{}, fmt.Errorf("upstream returned user %q for key %q", u.ID, id)
	}
	return u, nil
}

func retryable(ctx context.Context, err error) bool {
	if errors.Is(err, ErrNotFound) || ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
