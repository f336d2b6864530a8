// Package novel 实现小说生命周期状态机与统计聚合
package novel

import (
	"z-novel-api/internal/application/authz"
	"z-novel-api/internal/domain/entity"
)

// transitions 合法状态转换表：源状态 -> 目标状态 -> 所需授权动作
// 表外的任意状态对都是 InvalidTransition
var transitions = map[entity.NovelStatus]map[entity.NovelStatus]authz.Action{
	entity.NovelStatusDraft: {
		entity.NovelStatusUnderReview: authz.ActionSubmitForReview,
		entity.NovelStatusArchived:    authz.ActionArchive,
	},
	entity.NovelStatusUnderReview: {
		entity.NovelStatusPublished: authz.ActionApprove,
		entity.NovelStatusDraft:     authz.ActionReject,
	},
	entity.NovelStatusPublished: {
		entity.NovelStatusHidden:   authz.ActionHide,
		entity.NovelStatusArchived: authz.ActionArchive,
	},
	entity.NovelStatusHidden: {
		entity.NovelStatusPublished: authz.ActionUnhide,
		entity.NovelStatusArchived:  authz.ActionArchive,
	},
	// ARCHIVED 为终态，不允许任何转出
	entity.NovelStatusArchived: {},
}

// transitionAction 查询转换所需的授权动作
func transitionAction(from, to entity.NovelStatus) (authz.Action, bool) {
	targets, ok := transitions[from]
	if !ok {
		return "", false
	}
	action, ok := targets[to]
	return action, ok
}

// CanTransition 检查状态对是否在转换表内
func CanTransition(from, to entity.NovelStatus) bool {
	_, ok := transitionAction(from, to)
	return ok
}
