package source

import (
	"context"
	"fmt"

	"github.com/any-hub/user-cache/internal/user"
)

// Static 持有一份只读的用户表，构造后不再修改，因此无需加锁即可并发读取。
type Static struct {
	users map[string]user.User
}

// NewStatic 复制传入的用户列表，重复 ID 或缺少 ID 会返回错误。
func NewStatic(users []user.User) (*Static, error) {
	table := make(map[string]user.User, len(users))
	for _, u := range users {
		if err := u.Validate(); err != nil {
			return nil, err
		}
		if _, exists := table[u.ID]; exists {
			return nil, fmt.Errorf("duplicate user id %q", u.ID)
		}
		table[u.ID] = u
	}
	return &Static{users: table}, nil
}

func (s *Static) Search(ctx context.Context, id string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	u, ok := s.users[id]
	if !ok {
		return user.User{}, ErrNotFound
	}
	return u, nil
}

// Fixed 对任意 ID 都返回同一模板用户，ID 会被替换成请求的键，
// 以保证缓存中的键与实体标识一致。
type Fixed struct {
	Template user.User
}

func (f Fixed) Search(ctx context.Context, id string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	if id == "" {
		return user.User{}, ErrNotFound
	}
	u := f.Template
	u.ID = id
	return u, nil
}
