package source

import (
	"net"
	"net/http"
	"time"

	"github.com/any-hub/user-cache/internal/config"
)

const (
	defaultUpstreamTimeout = 30 * time.Second
	maxDialTimeout         = 10 * time.Second
	minIdleConns           = 16
)

// NewUpstreamClient 返回回源专用的 http.Client。
// 所有请求都打到同一个上游，空闲连接全部留给这一个 host，数量随分片数增长。
func NewUpstreamClient(cfg *config.Config) *http.Client {
	timeout := defaultUpstreamTimeout
	idle := minIdleConns
	if cfg != nil {
		if d := cfg.Global.UpstreamTimeout.DurationValue(); d > 0 {
			timeout = d
		}
		if cfg.Global.Shards > idle {
			idle = cfg.Global.Shards
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: newUpstreamTransport(timeout, idle),
	}
}

func newUpstreamTransport(timeout time.Duration, idle int) *http.Transport {
	dialTimeout := timeout
	if dialTimeout > maxDialTimeout {
		dialTimeout = maxDialTimeout
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          idle,
		MaxIdleConnsPerHost:   idle,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
}
