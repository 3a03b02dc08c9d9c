package source

import (
	"fmt"
	"net/http"

	"github.com/any-hub/user-cache/internal/config"
	"github.com/any-hub/user-cache/internal/user"
)

// New 根据 Source.Type 构建数据源；client 仅在 http 类型下使用，可为 nil。
func New(cfg *config.Config, client *http.Client) (Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	switch cfg.Source.Type {
	case config.SourceStatic:
		users := make([]user.User, 0, len(cfg.Users))
		for _, u := range cfg.Users {
			users = append(users, user.User{ID: u.ID, Age: u.Age})
		}
		static, err := NewStatic(users)
		if err != nil {
			return nil, err
		}
		return static, nil
	case config.SourceFixed:
		return Fixed{Template: user.User{Age: cfg.Source.FixedAge}}, nil
	case config.SourceHTTP:
		if client == nil {
			client = NewUpstreamClient(cfg)
		}
		remote, err := NewHTTP(client, cfg.Source.Upstream, HTTPOptions{
			Username:       cfg.Source.Username,
			Password:       cfg.Source.Password,
			MaxRetries:     cfg.Global.MaxRetries,
			InitialBackoff: cfg.Global.InitialBackoff.DurationValue(),
		})
		if err != nil {
			return nil, err
		}
		return remote, nil
	default:
		return nil, fmt.Errorf("unsupported source type %q", cfg.Source.Type)
	}
}
