package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const supportedSourceTypeList = "static|fixed|http"

// maxShards 限制分片数量，避免误配置导致大量空分片。
const maxShards = 1 << 12

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.Shards <= 0 || g.Shards > maxShards {
		return newFieldError("Global.Shards", fmt.Sprintf("必须在 1-%d", maxShards))
	}
	if g.MaxRetries < 0 {
		return newFieldError("Global.MaxRetries", "不能为负数")
	}
	if g.InitialBackoff.DurationValue() <= 0 {
		return newFieldError("Global.InitialBackoff", "必须大于 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	if err := c.validateSource(); err != nil {
		return err
	}
	return c.validateUsers()
}

func (c *Config) validateSource() error {
	s := &c.Source
	switch strings.ToLower(strings.TrimSpace(s.Type)) {
	case SourceStatic:
		if len(c.Users) == 0 {
			return newFieldError("Source.Type", "static 数据源至少需要一条 [[User]]")
		}
	case SourceFixed:
	case SourceHTTP:
		if err := validateUpstream(s.Upstream); err != nil {
			return fmt.Errorf("Source.Upstream: %w", err)
		}
	case "":
		return newFieldError("Source.Type", "不能为空")
	default:
		return newFieldError("Source.Type", "仅支持 "+supportedSourceTypeList)
	}

	if (s.Username == "") != (s.Password == "") {
		return newFieldError("Source.Username/Password", "必须同时提供或同时留空")
	}
	return nil
}

func (c *Config) validateUsers() error {
	seen := map[string]struct{}{}
	for _, u := range c.Users {
		id := strings.TrimSpace(u.ID)
		if id == "" {
			return newFieldError(userField("", "ID"), "不能为空")
		}
		if _, exists := seen[id]; exists {
			return newFieldError(userField(id, "ID"), "重复")
		}
		seen[id] = struct{}{}
	}
	return nil
}

func validateUpstream(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	return nil
}
