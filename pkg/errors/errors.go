package errors

import "errors"

// ── 错误类别 ──
// 业务层的具体错误通过 fmt.Errorf("%w: ...") 包装以下类别，
// Handler 层只按类别映射 HTTP 状态码。

var (
	// ErrNotFound 记录不存在（分配、区域、完成标记）
	ErrNotFound = errors.New("记录不存在")
	// ErrForbidden 当前操作者无权操作该分配
	ErrForbidden = errors.New("无权操作")
	// ErrInvalidTransition 状态流转不在允许的状态图内
	ErrInvalidTransition = errors.New("非法的状态流转")
	// ErrInvalidState 当前状态下不允许该操作
	ErrInvalidState = errors.New("当前状态不允许该操作")
	// ErrValidation 参数校验失败
	ErrValidation = errors.New("参数校验失败")
	// ErrGeometry 区域边界几何数据无效
	ErrGeometry = errors.New("几何数据无效")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
