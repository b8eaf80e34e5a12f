package service

import (
	"time"

	"github.com/cliff-simpkins/scouting-flyers/internal/dto"
	"github.com/cliff-simpkins/scouting-flyers/internal/model"
)

// ── 分配状态机 ──
//
//	assigned ──开始──▶ in_progress ──完成──▶ completed
//	    ▲                 │    ▲                 │
//	    └──────重置───────┘    └──────重新激活───┘

var allowedTransitions = map[string][]string{
	model.AssignmentStatusAssigned:   {model.AssignmentStatusInProgress},
	model.AssignmentStatusInProgress: {model.AssignmentStatusAssigned, model.AssignmentStatusCompleted},
	model.AssignmentStatusCompleted:  {model.AssignmentStatusInProgress},
}

// IsValidStatus 是否为已知状态
func IsValidStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

// CanTransition from → to 是否在状态图内（同状态不算流转）
func CanTransition(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 校验并执行状态流转，同时维护 started_at / completed_at。
// 调用方需持有该分配的行锁。
func ApplyTransition(a *model.ZoneAssignment, to string, now time.Time) error {
	if !IsValidStatus(to) {
		return ErrInvalidStatus
	}
	if !CanTransition(a.Status, to) {
		return &TransitionError{From: a.Status, To: to}
	}

	switch {
	case a.Status == model.AssignmentStatusAssigned && to == model.AssignmentStatusInProgress:
		if a.StartedAt == nil {
			a.StartedAt = &now
		}
	case to == model.AssignmentStatusCompleted:
		a.CompletedAt = &now
	case a.Status == model.AssignmentStatusCompleted:
		// 重新激活
		a.CompletedAt = nil
	}
	// in_progress → assigned：保留 started_at 与全部标记

	a.Status = to
	return nil
}

// ValidateManualPercentage nil 表示清除，否则必须在 [0,100]
func ValidateManualPercentage(v *int) error {
	if v == nil {
		return nil
	}
	if *v < 0 || *v > 100 {
		return ErrManualPercentageInvalid
	}
	return nil
}

// EffectivePercentage 展示用完成度：设置了人工值时以人工值为准
func EffectivePercentage(a *model.ZoneAssignment, computed float64) (float64, string) {
	if a.ManualCompletionPercentage != nil {
		return float64(*a.ManualCompletionPercentage), dto.PercentageSourceManual
	}
	return computed, dto.PercentageSourceComputed
}

// marksEditable 已完成的分配不接受标记增删
func marksEditable(a *model.ZoneAssignment) error {
	if a.Status == model.AssignmentStatusCompleted {
		return ErrAssignmentCompleted
	}
	return nil
}
