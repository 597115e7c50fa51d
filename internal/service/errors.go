package service

import "errors"

// 校验类错误：入参不合法，调用方不应重试
var (
	ErrFollowSelf  = errors.New("cannot follow self")
	ErrLoginLength = errors.New("login length should be between 3 and 100 characters")
	ErrBadEmail    = errors.New("email is not a valid email address")
	ErrTextLength  = errors.New("text length should be between 1 and 140 characters")
	ErrBadAction   = errors.New("action must be add or remove")
)

// 冲突类错误：唯一性预检查命中。检查与写入不在同一事务，存在已知竞态窗口。
var (
	ErrLoginTaken = errors.New("login already exists in the database")
	ErrEmailTaken = errors.New("email already exists in the database")
)

// ErrNotFound 引用的聚合不存在
var ErrNotFound = errors.New("not found")

// IsValidation 判断是否校验类错误
func IsValidation(err error) bool {
	return errors.Is(err, ErrFollowSelf) ||
		errors.Is(err, ErrLoginLength) ||
		errors.Is(err, ErrBadEmail) ||
		errors.Is(err, ErrTextLength) ||
		errors.Is(err, ErrBadAction)
}

// IsConflict 判断是否冲突类错误
func IsConflict(err error) bool {
	return errors.Is(err, ErrLoginTaken) || errors.Is(err, ErrEmailTaken)
}
