// Package authz 提供变更操作的显式授权守卫
package authz

import (
	"z-novel-api/pkg/errors"
)

// Role 参与者角色
type Role string

const (
	RoleReader Role = "reader"
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

// Actor 发起操作的参与者
type Actor struct {
	UserID uint64
	Role   Role
}

// IsAdmin 检查参与者是否为管理员
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Action 受守卫的操作
type Action string

const (
	ActionCreate          Action = "create"
	ActionEdit            Action = "edit"
	ActionDelete          Action = "delete"
	ActionPublish         Action = "publish"
	ActionSubmitForReview Action = "submit_for_review"
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionHide            Action = "hide"
	ActionUnhide          Action = "unhide"
	ActionArchive         Action = "archive"
	ActionAdminDelete     Action = "admin_delete"
)

// Authorize 在每个变更操作入口处调用
// ownerID 为目标聚合的作者；不满足授权规则时返回 Forbidden
func Authorize(actor Actor, ownerID uint64, action Action) error {
	switch action {
	case ActionApprove, ActionReject, ActionAdminDelete:
		// 仅管理员
		if actor.IsAdmin() {
			return nil
		}
	case ActionHide, ActionUnhide, ActionArchive:
		// 管理员或作者本人
		if actor.IsAdmin() || actor.UserID == ownerID {
			return nil
		}
	case ActionCreate, ActionEdit, ActionDelete, ActionPublish, ActionSubmitForReview:
		// 仅作者本人
		if actor.UserID == ownerID {
			return nil
		}
	default:
		return errors.ErrForbidden.WithDetail("unknown action: " + string(action))
	}
	return errors.ErrForbidden.WithDetail("operation not allowed for this actor")
}
