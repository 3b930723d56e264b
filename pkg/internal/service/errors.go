package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/omnivault/omnivault/pkg/internal/storage/backend"
)

// 业务错误哨兵，handle 层据此映射 HTTP 状态码.
var (
	// ErrNotFound 目标文件或文件夹不存在（或不属于当前用户）.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict 名称冲突且未指定可行的解决策略.
	ErrConflict = errors.New("name conflict")
	// ErrForbidden 目标存在但不属于当前用户.
	ErrForbidden = errors.New("forbidden")
	// ErrCapacityExceeded 所有可达后端账户均无法容纳该对象.
	ErrCapacityExceeded = errors.New("no backend account has enough free space")
	// ErrBackendUnavailable 远端存储暂时不可达.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrValidation 请求参数非法.
	ErrValidation = errors.New("invalid request")
	// ErrUploadLimit 用户并发上传数已达上限.
	ErrUploadLimit = errors.New("too many concurrent uploads")
)

// mapBackendErr 把底层存储错误转换为业务哨兵，其余错误原样返回.
func mapBackendErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, backend.ErrNoCapacity):
		return ErrCapacityExceeded
	case errors.Is(err, backend.ErrInvalidSize):
		return ErrValidation
	default:
		return err
	}
}

// isNotFound 统一判断 GORM 记录缺失.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
