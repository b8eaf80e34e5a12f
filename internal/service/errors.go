package service

import (
	"errors"
	"fmt"

	pkgerrors "github.com/cliff-simpkins/scouting-flyers/pkg/errors"
)

// ── 业务错误 ──
// 均包装 pkg/errors 中的错误类别，Handler 层按类别映射状态码

var (
	ErrZoneNotFound       = fmt.Errorf("%w: 区域不存在", pkgerrors.ErrNotFound)
	ErrAssignmentNotFound = fmt.Errorf("%w: 分配不存在", pkgerrors.ErrNotFound)
	ErrMarkNotFound       = fmt.Errorf("%w: 完成标记不存在", pkgerrors.ErrNotFound)
	ErrNoteNotFound       = fmt.Errorf("%w: 留言不存在", pkgerrors.ErrNotFound)

	ErrAssignmentForbidden = fmt.Errorf("%w: 仅分配的志愿者或组织者可操作", pkgerrors.ErrForbidden)
	ErrOrganizerOnly       = fmt.Errorf("%w: 仅组织者可操作", pkgerrors.ErrForbidden)
	ErrVolunteerOnly       = fmt.Errorf("%w: 仅分配的志愿者本人可操作", pkgerrors.ErrForbidden)
	ErrNoteAuthorOnly      = fmt.Errorf("%w: 仅留言作者可修改或删除", pkgerrors.ErrForbidden)

	ErrAssignmentCompleted = fmt.Errorf("%w: 分配已完成，不能修改完成标记", pkgerrors.ErrInvalidState)
	ErrAssignmentExists    = fmt.Errorf("%w: 该志愿者在此区域已有未完成的分配", pkgerrors.ErrInvalidState)

	ErrInvalidStatus           = fmt.Errorf("%w: 未知的分配状态", pkgerrors.ErrValidation)
	ErrManualPercentageInvalid = fmt.Errorf("%w: 人工完成度必须在 0-100 之间", pkgerrors.ErrValidation)
	ErrNotesTooLong            = fmt.Errorf("%w: 备注不能超过 %d 个字符", pkgerrors.ErrValidation, MaxNotesLength)
)

// MaxNotesLength 分配备注与留言的最大长度（字符数）
const MaxNotesLength = 5000

// TransitionError 状态图中不存在的流转
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s → %s", pkgerrors.ErrInvalidTransition.Error(), e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return pkgerrors.ErrInvalidTransition }

// isBusinessError 是否为可预期的业务拒绝（非系统故障）
func isBusinessError(err error) bool {
	for _, kind := range []error{
		pkgerrors.ErrNotFound,
		pkgerrors.ErrForbidden,
		pkgerrors.ErrInvalidTransition,
		pkgerrors.ErrInvalidState,
		pkgerrors.ErrValidation,
		pkgerrors.ErrGeometry,
		pkgerrors.ErrOptimisticLock,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
