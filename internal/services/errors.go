package services

import (
	"errors"
	"fmt"
)

// 错误类别。具体错误通过 %w 包装其中一个类别，处理器用 errors.Is 映射为 HTTP 状态码。
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

var (
	ErrSelfFriendship      = fmt.Errorf("%w: cannot befriend yourself", ErrValidation)
	ErrRelationshipExists  = fmt.Errorf("%w: a relationship already exists", ErrConflict)
	ErrNoPendingRequest    = fmt.Errorf("%w: no pending request from this user", ErrNotFound)
	ErrFriendCodeNotFound  = fmt.Errorf("%w: unknown friend code", ErrNotFound)
	ErrNotFriends          = fmt.Errorf("%w: users are not friends", ErrForbidden)
	ErrEmptyMessage        = fmt.Errorf("%w: message content is empty", ErrValidation)
	ErrMessageTooLong      = fmt.Errorf("%w: message content is too long", ErrValidation)
	ErrUserAlreadyExists   = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrUserNotFound        = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInvalidUsername     = fmt.Errorf("%w: username must be 3 to 50 characters", ErrValidation)
	ErrPasswordTooShort    = fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	ErrFriendCodeExhausted = errors.New("could not allocate a unique friend code")
)

// StorageError 包装持久化层的错误，保留操作名称。
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes every StorageError match ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
