package novel

import (
	"testing"

	"z-novel-api/internal/application/authz"
	"z-novel-api/internal/domain/entity"
)

func TestTransitionTable(t *testing.T) {
	allStatuses := []entity.NovelStatus{
		entity.NovelStatusDraft,
		entity.NovelStatusUnderReview,
		entity.NovelStatusPublished,
		entity.NovelStatusHidden,
		entity.NovelStatusArchived,
	}

	// 合法转换全集及其所需授权动作
	allowed := map[entity.NovelStatus]map[entity.NovelStatus]authz.Action{
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
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			wantAction, wantOK := allowed[from][to]

			gotAction, gotOK := transitionAction(from, to)
			if gotOK != wantOK {
				t.Errorf("transitionAction(%s, %s) 允许性 = %v, 期望 %v", from, to, gotOK, wantOK)
				continue
			}
			if gotOK && gotAction != wantAction {
				t.Errorf("transitionAction(%s, %s) 动作 = %s, 期望 %s", from, to, gotAction, wantAction)
			}
			if CanTransition(from, to) != wantOK {
				t.Errorf("CanTransition(%s, %s) = %v, 期望 %v", from, to, !wantOK, wantOK)
			}
		}
	}
}

func TestArchivedIsTerminal(t *testing.T) {
	for _, to := range []entity.NovelStatus{
		entity.NovelStatusDraft,
		entity.NovelStatusUnderReview,
		entity.NovelStatusPublished,
		entity.NovelStatusHidden,
		entity.NovelStatusArchived,
	} {
		if CanTransition(entity.NovelStatusArchived, to) {
			t.Errorf("ARCHIVED 不应允许转出到 %s", to)
		}
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	if CanTransition(entity.NovelStatus("BOGUS"), entity.NovelStatusDraft) {
		t.Error("未知源状态不应允许任何转换")
	}
	if CanTransition(entity.NovelStatusDraft, entity.NovelStatus("BOGUS")) {
		t.Error("未知目标状态不应允许任何转换")
	}
}
