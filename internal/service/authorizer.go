package service

import (
	"context"

	"github.com/cliff-simpkins/scouting-flyers/internal/model"
)

// Actor 当前操作者（由认证中间件从 Token 中解析）
type Actor struct {
	UserID string
	Role   string
}

// Authorizer 授权判断
// 项目协作者关系由外部系统维护，这里只需要一个布尔判断
type Authorizer interface {
	// CanActOn 是否可修改该分配（标记、状态、人工完成度）
	CanActOn(ctx context.Context, actor Actor, a *model.ZoneAssignment) bool
	// CanManage 是否可分配志愿者、删除分配、登记区域
	CanManage(ctx context.Context, actor Actor) bool
}

type roleAuthorizer struct {
	organizerRoles map[string]struct{}
}

// NewRoleAuthorizer 分配的志愿者本人或组织者角色可操作
func NewRoleAuthorizer(organizerRoles []string) Authorizer {
	roles := make(map[string]struct{}, len(organizerRoles))
	for _, r := range organizerRoles {
		roles[r] = struct{}{}
	}
	return &roleAuthorizer{organizerRoles: roles}
}

func (z *roleAuthorizer) CanActOn(ctx context.Context, actor Actor, a *model.ZoneAssignment) bool {
	if actor.UserID != "" && actor.UserID == a.VolunteerID {
		return true
	}
	return z.CanManage(ctx, actor)
}

func (z *roleAuthorizer) CanManage(_ context.Context, actor Actor) bool {
	_, ok := z.organizerRoles[actor.Role]
	return ok
}
