package user

import (
	"errors"
	"strings"
)

// ErrMissingID 表示实体缺少标识，缓存无法以其作为键。
var ErrMissingID = errors.New("user id required")

// User 是缓存中保存并对外返回的实体，按值传递，写入缓存后不再修改。
type User struct {
	ID  string `json:"id"`
	Age uint32 `json:"age"`
}

// Validate 校验实体形状，数据源在交给缓存之前调用。
func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrMissingID
	}
	return nil
}
