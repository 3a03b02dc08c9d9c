package source

import (
	"context"
	"errors"

	"github.com/any-hub/user-cache/internal/user"
)

// ErrNotFound 表示数据源确认该用户不存在，不属于故障。
var ErrNotFound = errors.New("user not found")

// Source 描述缓存背后的权威数据源。实现必须支持并发调用。
type Source interface {
	Search(ctx context.Context, id string) (user.User, error)
}

// Func adapts a function to the Source interface.
type Func func(ctx context.Context, id string) (user.User, error)

// Search makes Func satisfy Source.
func (f Func) Search(ctx context.Context, id string) (user.User, error) {
	return f(ctx, id)
}
